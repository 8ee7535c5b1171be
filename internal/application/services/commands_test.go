package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/DanielPopoola/ocrbot/internal/application/mocks"
	"github.com/DanielPopoola/ocrbot/internal/application/services"
	"github.com/DanielPopoola/ocrbot/internal/domain"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/suite"
)

const (
	adminID   int64 = 1
	adminChat int64 = 1
	userID    int64 = 500
	userChat  int64 = 500
)

type CommandServiceTestSuite struct {
	suite.Suite
	audience  *mocks.MockAudienceStore
	records   *memoryRecords
	messenger *recordingMessenger
	languages *services.LanguagePrefs
	commands  *services.CommandService
}

func TestCommandServiceSuite(t *testing.T) {
	suite.Run(t, new(CommandServiceTestSuite))
}

func (suite *CommandServiceTestSuite) SetupTest() {
	suite.audience = mocks.NewMockAudienceStore(suite.T())
	suite.records = newMemoryRecords()
	suite.messenger = newRecordingMessenger()
	suite.languages = services.NewLanguagePrefs()

	broadcasts := services.NewBroadcastService(suite.audience, suite.messenger, 1000, 4, discardLogger())
	suite.commands = services.NewCommandService(
		suite.audience,
		suite.records,
		suite.messenger,
		broadcasts,
		suite.languages,
		func(id int64) bool { return id == adminID },
		discardLogger(),
	)
}

func (suite *CommandServiceTestSuite) handle(sender, chat int64, text string) *services.Outcome {
	msg, err := domain.NewInboundMessage(domain.NewMessageID(chat, 1), chat, sender, text, nil)
	suite.Require().NoError(err)
	out := suite.commands.Handle(context.Background(), msg)
	suite.Equal(domain.StateReplied, out.State)
	return out
}

func (suite *CommandServiceTestSuite) TestStart() {
	suite.handle(adminID, adminChat, "/start")
	suite.Contains(suite.messenger.LastText(adminChat), "Admin Panel")

	suite.handle(userID, userChat, "/help")
	suite.Contains(suite.messenger.LastText(userChat), "Welcome")
}

func (suite *CommandServiceTestSuite) TestSubscribe() {
	suite.audience.EXPECT().Subscribe(mock.Anything, userID).Return(true, nil).Once()
	suite.handle(userID, userChat, "/subscribe")
	suite.Contains(suite.messenger.LastText(userChat), "Successfully subscribed")

	suite.audience.EXPECT().Subscribe(mock.Anything, userID).Return(false, nil).Once()
	suite.handle(userID, userChat, "/subscribe")
	suite.Contains(suite.messenger.LastText(userChat), "already subscribed")
}

func (suite *CommandServiceTestSuite) TestUnsubscribe() {
	suite.audience.EXPECT().Unsubscribe(mock.Anything, userID).Return(false, nil).Once()
	suite.handle(userID, userChat, "/unsubscribe")
	suite.Contains(suite.messenger.LastText(userChat), "not currently subscribed")

	suite.audience.EXPECT().Unsubscribe(mock.Anything, userID).Return(true, nil).Once()
	suite.handle(userID, userChat, "/unsubscribe")
	suite.Contains(suite.messenger.LastText(userChat), "Successfully unsubscribed")
}

func (suite *CommandServiceTestSuite) TestAdminCommandsRequireAdmin() {
	for _, cmd := range []string{"/add 5", "/stats", "/subscribers", "/broadcast all hi"} {
		suite.handle(userID, userChat, cmd)
		suite.Contains(suite.messenger.LastText(userChat), "don't have permission", cmd)
	}
}

func (suite *CommandServiceTestSuite) TestAdd() {
	suite.handle(adminID, adminChat, "/add")
	suite.Contains(suite.messenger.LastText(adminChat), "Please provide a user ID")

	suite.handle(adminID, adminChat, "/add abc")
	suite.Contains(suite.messenger.LastText(adminChat), "Invalid user ID")

	suite.audience.EXPECT().AddUser(mock.Anything, int64(55)).Return(nil).Once()
	suite.audience.EXPECT().Subscribe(mock.Anything, int64(55)).Return(true, nil).Once()
	suite.handle(adminID, adminChat, "/add 55")
	suite.Contains(suite.messenger.LastText(adminChat), "User 55 added")
}

func (suite *CommandServiceTestSuite) TestStats() {
	suite.audience.EXPECT().Snapshot(mock.Anything).Return(domain.Audience{
		Users:       []int64{1, 2, 3},
		Subscribers: []int64{2},
	}, nil).Once()

	suite.handle(adminID, adminChat, "/stats")

	text := suite.messenger.LastText(adminChat)
	suite.Contains(text, "Total Users: 3")
	suite.Contains(text, "Subscribers: 1")
	suite.Contains(text, "Non-subscribers: 2")
}

func (suite *CommandServiceTestSuite) TestSubscribers() {
	suite.audience.EXPECT().Snapshot(mock.Anything).Return(domain.Audience{}, nil).Once()
	suite.handle(adminID, adminChat, "/subscribers")
	suite.Contains(suite.messenger.LastText(adminChat), "No subscribers yet")

	suite.audience.EXPECT().Snapshot(mock.Anything).Return(domain.Audience{
		Users:       []int64{30, 10, 20},
		Subscribers: []int64{30, 10},
	}, nil).Once()
	suite.handle(adminID, adminChat, "/subscribers")
	suite.Equal("📝 Subscribers List (2 total):\n\n• 10\n• 30", suite.messenger.LastText(adminChat))
}

func (suite *CommandServiceTestSuite) TestSubscribers_LongListIsSplit() {
	ids := make([]int64, 600)
	for i := range ids {
		ids[i] = 1_000_000_000_000 + int64(i)
	}
	suite.audience.EXPECT().Snapshot(mock.Anything).Return(domain.Audience{Users: ids, Subscribers: ids}, nil).Once()

	suite.handle(adminID, adminChat, "/subscribers")

	sent := suite.messenger.To(adminChat)
	suite.GreaterOrEqual(len(sent), 3)
	suite.Equal("📝 Subscribers List (600 total):", sent[0].Text)
	for _, m := range sent {
		suite.LessOrEqual(len([]rune(m.Text)), 4000)
	}
	suite.Contains(sent[len(sent)-1].Text, "1000000000599")
}

func (suite *CommandServiceTestSuite) TestBroadcast() {
	suite.audience.EXPECT().Snapshot(mock.Anything).Return(domain.Audience{
		Users:       []int64{adminID, 2, 3, 4},
		Subscribers: []int64{2, 3},
	}, nil)
	suite.messenger.failFor[3] = errors.New("bot was blocked by the user")

	suite.handle(adminID, adminChat, "/broadcast subscribers\nNew signal\nOpen|https://example.com")

	delivered := suite.messenger.To(2)
	suite.Require().Len(delivered, 1)
	suite.Equal("New signal", delivered[0].Text)
	suite.Equal([]domain.Button{{Text: "Open", URL: "https://example.com"}}, delivered[0].Buttons)
	suite.Empty(suite.messenger.To(4))

	summary := suite.messenger.LastText(adminChat)
	suite.Contains(summary, "Target: Subscribers")
	suite.Contains(summary, "Successfully sent: 1")
	suite.Contains(summary, "Failed: 1")
	suite.Contains(summary, "Total attempted: 2")
}

func (suite *CommandServiceTestSuite) TestBroadcast_NoAudience() {
	suite.audience.EXPECT().Snapshot(mock.Anything).Return(domain.Audience{Users: []int64{adminID}}, nil).Once()

	suite.handle(adminID, adminChat, "/broadcast subscribers hello")

	suite.Contains(suite.messenger.LastText(adminChat), "No subscribers found")
}

func (suite *CommandServiceTestSuite) TestBroadcast_Invalid() {
	suite.handle(adminID, adminChat, "/broadcast everyone hello")
	suite.Contains(suite.messenger.LastText(adminChat), "unknown target")
}

func (suite *CommandServiceTestSuite) TestRecord() {
	result := domain.NewSuccessResult(domain.NewMessageID(userChat, 7), "HELLO WORLD", time.Second)
	record, err := domain.NewPersistedRecord(nil, result, time.Now())
	suite.Require().NoError(err)
	suite.Require().NoError(suite.records.Put(context.Background(), record))

	suite.handle(userID, userChat, "/record 7")
	suite.Contains(suite.messenger.LastText(userChat), "HELLO WORLD")

	suite.handle(userID, userChat, "/record 8")
	suite.Contains(suite.messenger.LastText(userChat), "No stored result")

	suite.handle(userID, userChat, "/record")
	suite.Contains(suite.messenger.LastText(userChat), "Usage: /record")
}

func (suite *CommandServiceTestSuite) TestLang() {
	suite.handle(userID, userChat, "/lang DEU+eng")
	suite.Contains(suite.messenger.LastText(userChat), "deu+eng")
	suite.Equal("deu+eng", suite.languages.Get(userChat))

	suite.handle(userID, userChat, "/lang ../../etc")
	suite.Contains(suite.messenger.LastText(userChat), "Usage: /lang")
	suite.Equal("deu+eng", suite.languages.Get(userChat))
}

func (suite *CommandServiceTestSuite) TestUnknownCommand() {
	suite.handle(userID, userChat, "/dance")
	suite.Contains(suite.messenger.LastText(userChat), "Unknown command")
}

func (suite *CommandServiceTestSuite) TestStoreErrorSendsApology() {
	suite.audience.EXPECT().Subscribe(mock.Anything, userID).Return(false, errors.New("disk full")).Once()

	out := suite.handle(userID, userChat, "/subscribe")

	suite.Error(out.Err)
	suite.True(strings.Contains(suite.messenger.LastText(userChat), "Sorry, an error occurred"))
}
