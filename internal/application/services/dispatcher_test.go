package services_test

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/application/mocks"
	"github.com/DanielPopoola/ocrbot/internal/application/services"
	"github.com/DanielPopoola/ocrbot/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type dispatcherFixture struct {
	dispatcher *services.Dispatcher
	records    *memoryRecords
	messenger  *recordingMessenger
	languages  *services.LanguagePrefs
	audience   *mocks.MockAudienceStore
}

func newDispatcherFixture(t *testing.T, engine *mocks.MockOCREngine, limit int) *dispatcherFixture {
	t.Helper()
	f := &dispatcherFixture{
		records:   newMemoryRecords(),
		messenger: newRecordingMessenger(),
		languages: services.NewLanguagePrefs(),
		audience:  mocks.NewMockAudienceStore(t),
	}
	f.audience.EXPECT().AddUser(mock.Anything, mock.Anything).Return(nil).Maybe()

	var ocr application.OCREngine = echoEngine{}
	if engine != nil {
		ocr = engine
	}

	logger := discardLogger()
	pipeline := services.NewPipelineService(ocr, f.records, f.messenger, "eng", logger)
	broadcasts := services.NewBroadcastService(f.audience, f.messenger, 100, 1, logger)
	commands := services.NewCommandService(f.audience, f.records, f.messenger, broadcasts, f.languages,
		func(int64) bool { return false }, logger)
	f.dispatcher = services.NewDispatcher(pipeline, commands, f.audience, f.languages, f.messenger, limit, logger)
	return f
}

func TestDispatcher_ConcurrentMessagesDoNotMix(t *testing.T) {
	f := newDispatcherFixture(t, nil, 8)
	ctx := context.Background()

	const n = 50
	for i := 0; i < n; i++ {
		chatID := int64(1000 + i)
		msg, err := domain.NewInboundMessage(domain.NewMessageID(chatID, 1), chatID, chatID, "",
			&domain.ImagePayload{Data: []byte(fmt.Sprintf("text %d", i))})
		require.NoError(t, err)
		f.dispatcher.Submit(ctx, msg)
	}
	f.dispatcher.Wait()

	assert.Equal(t, n, f.records.Len())
	for i := 0; i < n; i++ {
		chatID := int64(1000 + i)
		rec, err := f.records.Get(ctx, domain.NewMessageID(chatID, 1).Key())
		require.NoError(t, err)
		assert.Equal(t, fmt.Sprintf("TEXT %d", i), rec.Text)
		assert.Equal(t, chatID, rec.ChatID)
		assert.Contains(t, f.messenger.LastText(chatID), fmt.Sprintf("TEXT %d", i))
	}
}

func TestDispatcher_RoutesCommandsAwayFromEngine(t *testing.T) {
	engine := mocks.NewMockOCREngine(t)
	f := newDispatcherFixture(t, engine, 1)

	msg, err := domain.NewInboundMessage("5-1", 5, 5, "/help", nil)
	require.NoError(t, err)

	out := f.dispatcher.Dispatch(context.Background(), msg)

	assert.Equal(t, domain.StateReplied, out.State)
	assert.Contains(t, f.messenger.LastText(5), "Welcome")
	engine.AssertNotCalled(t, "Extract", mock.Anything, mock.Anything, mock.Anything)
}

func TestDispatcher_AppliesChatLanguage(t *testing.T) {
	engine := mocks.NewMockOCREngine(t)
	engine.EXPECT().Extract(mock.Anything, mock.Anything, "fra").
		Return(domain.OcrResult{Text: "BONJOUR", Engine: "fake"}, nil).
		Once()
	f := newDispatcherFixture(t, engine, 1)
	_, ok := f.languages.Set(9, "fra")
	require.True(t, ok)

	msg, err := domain.NewInboundMessage("9-3", 9, 9, "", &domain.ImagePayload{Data: []byte("img")})
	require.NoError(t, err)

	out := f.dispatcher.Dispatch(context.Background(), msg)

	assert.Equal(t, domain.StateReplied, out.State)
	assert.Equal(t, "fra", out.Result.Language)
	assert.Empty(t, msg.LanguageHint, "the caller's message must not be modified")
}

func TestDispatcher_RecoversFromPanics(t *testing.T) {
	engine := mocks.NewMockOCREngine(t)
	engine.EXPECT().Name().Return("fake").Maybe()
	engine.EXPECT().Extract(mock.Anything, mock.Anything, mock.Anything).
		Panic("engine exploded").
		Once()
	f := newDispatcherFixture(t, engine, 1)

	msg, err := domain.NewInboundMessage("9-4", 9, 9, "", &domain.ImagePayload{Data: []byte("img")})
	require.NoError(t, err)

	out := f.dispatcher.Dispatch(context.Background(), msg)

	require.Error(t, out.Err)
	assert.True(t, strings.Contains(f.messenger.LastText(9), "Sorry"))
}
