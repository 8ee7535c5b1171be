// Package mocks holds testify mocks for the application ports.
package mocks

import (
	"context"

	"github.com/DanielPopoola/ocrbot/internal/application"
	"github.com/DanielPopoola/ocrbot/internal/domain"
	"github.com/stretchr/testify/mock"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockOCREngine

type MockOCREngine struct {
	mock.Mock
}

type MockOCREngine_Expecter struct {
	mock *mock.Mock
}

func NewMockOCREngine(t testingT) *MockOCREngine {
	m := &MockOCREngine{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockOCREngine) EXPECT() *MockOCREngine_Expecter {
	return &MockOCREngine_Expecter{mock: &m.Mock}
}

func (m *MockOCREngine) Extract(ctx context.Context, image []byte, languageHint string) (domain.OcrResult, error) {
	ret := m.Called(ctx, image, languageHint)
	if fn, ok := ret.Get(0).(func(context.Context, []byte, string) (domain.OcrResult, error)); ok {
		return fn(ctx, image, languageHint)
	}
	return ret.Get(0).(domain.OcrResult), ret.Error(1)
}

func (e *MockOCREngine_Expecter) Extract(ctx, image, languageHint interface{}) *mock.Call {
	return e.mock.On("Extract", ctx, image, languageHint)
}

func (m *MockOCREngine) Name() string {
	ret := m.Called()
	return ret.String(0)
}

func (e *MockOCREngine_Expecter) Name() *mock.Call {
	return e.mock.On("Name")
}

func (m *MockOCREngine) Available(ctx context.Context) error {
	ret := m.Called(ctx)
	return ret.Error(0)
}

func (e *MockOCREngine_Expecter) Available(ctx interface{}) *mock.Call {
	return e.mock.On("Available", ctx)
}

// MockRecordStore

type MockRecordStore struct {
	mock.Mock
}

type MockRecordStore_Expecter struct {
	mock *mock.Mock
}

func NewMockRecordStore(t testingT) *MockRecordStore {
	m := &MockRecordStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockRecordStore) EXPECT() *MockRecordStore_Expecter {
	return &MockRecordStore_Expecter{mock: &m.Mock}
}

func (m *MockRecordStore) Put(ctx context.Context, record *domain.PersistedRecord) error {
	ret := m.Called(ctx, record)
	return ret.Error(0)
}

func (e *MockRecordStore_Expecter) Put(ctx, record interface{}) *mock.Call {
	return e.mock.On("Put", ctx, record)
}

func (m *MockRecordStore) Get(ctx context.Context, key domain.StorageKey) (*domain.PersistedRecord, error) {
	ret := m.Called(ctx, key)
	record, _ := ret.Get(0).(*domain.PersistedRecord)
	return record, ret.Error(1)
}

func (e *MockRecordStore_Expecter) Get(ctx, key interface{}) *mock.Call {
	return e.mock.On("Get", ctx, key)
}

func (m *MockRecordStore) List(ctx context.Context, limit, offset int) ([]*domain.PersistedRecord, error) {
	ret := m.Called(ctx, limit, offset)
	records, _ := ret.Get(0).([]*domain.PersistedRecord)
	return records, ret.Error(1)
}

func (e *MockRecordStore_Expecter) List(ctx, limit, offset interface{}) *mock.Call {
	return e.mock.On("List", ctx, limit, offset)
}

func (m *MockRecordStore) Ping(ctx context.Context) error {
	ret := m.Called(ctx)
	return ret.Error(0)
}

func (e *MockRecordStore_Expecter) Ping(ctx interface{}) *mock.Call {
	return e.mock.On("Ping", ctx)
}

// MockAudienceStore

type MockAudienceStore struct {
	mock.Mock
}

type MockAudienceStore_Expecter struct {
	mock *mock.Mock
}

func NewMockAudienceStore(t testingT) *MockAudienceStore {
	m := &MockAudienceStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockAudienceStore) EXPECT() *MockAudienceStore_Expecter {
	return &MockAudienceStore_Expecter{mock: &m.Mock}
}

func (m *MockAudienceStore) AddUser(ctx context.Context, userID int64) error {
	ret := m.Called(ctx, userID)
	return ret.Error(0)
}

func (e *MockAudienceStore_Expecter) AddUser(ctx, userID interface{}) *mock.Call {
	return e.mock.On("AddUser", ctx, userID)
}

func (m *MockAudienceStore) Subscribe(ctx context.Context, userID int64) (bool, error) {
	ret := m.Called(ctx, userID)
	return ret.Bool(0), ret.Error(1)
}

func (e *MockAudienceStore_Expecter) Subscribe(ctx, userID interface{}) *mock.Call {
	return e.mock.On("Subscribe", ctx, userID)
}

func (m *MockAudienceStore) Unsubscribe(ctx context.Context, userID int64) (bool, error) {
	ret := m.Called(ctx, userID)
	return ret.Bool(0), ret.Error(1)
}

func (e *MockAudienceStore_Expecter) Unsubscribe(ctx, userID interface{}) *mock.Call {
	return e.mock.On("Unsubscribe", ctx, userID)
}

func (m *MockAudienceStore) Snapshot(ctx context.Context) (domain.Audience, error) {
	ret := m.Called(ctx)
	return ret.Get(0).(domain.Audience), ret.Error(1)
}

func (e *MockAudienceStore_Expecter) Snapshot(ctx interface{}) *mock.Call {
	return e.mock.On("Snapshot", ctx)
}

// MockMessenger

type MockMessenger struct {
	mock.Mock
}

type MockMessenger_Expecter struct {
	mock *mock.Mock
}

func NewMockMessenger(t testingT) *MockMessenger {
	m := &MockMessenger{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockMessenger) EXPECT() *MockMessenger_Expecter {
	return &MockMessenger_Expecter{mock: &m.Mock}
}

func (m *MockMessenger) Send(ctx context.Context, msg application.OutgoingMessage) error {
	ret := m.Called(ctx, msg)
	return ret.Error(0)
}

func (e *MockMessenger_Expecter) Send(ctx, msg interface{}) *mock.Call {
	return e.mock.On("Send", ctx, msg)
}

var (
	_ application.OCREngine     = (*MockOCREngine)(nil)
	_ application.RecordStore   = (*MockRecordStore)(nil)
	_ application.AudienceStore = (*MockAudienceStore)(nil)
	_ application.Messenger     = (*MockMessenger)(nil)
)
