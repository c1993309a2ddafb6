package services

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"campaign-chat/internal/core/domain"
)

// ============================================================================
// Mock Repositories
// ============================================================================

// MockConversationRepository mocks ConversationRepository interface
type MockConversationRepository struct {
	mock.Mock
}

func (m *MockConversationRepository) GetByPlatformUserID(ctx context.Context, platformUserID string) (*domain.Conversation, error) {
	args := m.Called(ctx, platformUserID)
	// Safely handle nil return
	if result := args.Get(0); result != nil {
		return result.(*domain.Conversation), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockConversationRepository) Create(ctx context.Context, conversation *domain.Conversation) error {
	args := m.Called(ctx, conversation)
	return args.Error(0)
}

func (m *MockConversationRepository) Save(ctx context.Context, conversation *domain.Conversation) error {
	args := m.Called(ctx, conversation)
	return args.Error(0)
}

func (m *MockConversationRepository) SetLastOutboundMessage(ctx context.Context, conversationID int64, messageID string) error {
	args := m.Called(ctx, conversationID, messageID)
	return args.Error(0)
}

// MockMessageRepository mocks MessageRepository interface
type MockMessageRepository struct {
	mock.Mock
}

func (m *MockMessageRepository) SaveMessage(ctx context.Context, msg *domain.Message) error {
	args := m.Called(ctx, msg)
	return args.Error(0)
}

func (m *MockMessageRepository) SetPlatformMessageID(ctx context.Context, id string, platformMessageID string) error {
	args := m.Called(ctx, id, platformMessageID)
	return args.Error(0)
}

// MockReplyCache mocks ReplyCache interface
type MockReplyCache struct {
	mock.Mock
}

func (m *MockReplyCache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	args := m.Called(ctx, key)
	if result := args.Get(0); result != nil {
		return result.([]byte), args.Bool(1), args.Error(2)
	}
	return nil, args.Bool(1), args.Error(2)
}

func (m *MockReplyCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) ([]byte, error) {
	args := m.Called(ctx, key, value, ttl)
	if result := args.Get(0); result != nil {
		return result.([]byte), args.Error(1)
	}
	return nil, args.Error(1)
}

// ============================================================================
// Mock Collaborators
// ============================================================================

// MockUserService mocks UserService interface
type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) FetchByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if result := args.Get(0); result != nil {
		return result.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) FetchByMobile(ctx context.Context, mobile string) (*domain.User, error) {
	args := m.Called(ctx, mobile)
	if result := args.Get(0); result != nil {
		return result.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) FetchByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if result := args.Get(0); result != nil {
		return result.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, user *domain.User) (*domain.User, error) {
	args := m.Called(ctx, user)
	if result := args.Get(0); result != nil {
		return result.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserService) UpdateSMSStatus(ctx context.Context, id string, status string) error {
	args := m.Called(ctx, id, status)
	return args.Error(0)
}

// MockContentService mocks ContentService interface
type MockContentService struct {
	mock.Mock
}

func (m *MockContentService) FetchBroadcastByID(ctx context.Context, id string) (*domain.Broadcast, error) {
	args := m.Called(ctx, id)
	if result := args.Get(0); result != nil {
		return result.(*domain.Broadcast), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockContentService) FetchCampaignByID(ctx context.Context, id int) (*domain.Campaign, error) {
	args := m.Called(ctx, id)
	if result := args.Get(0); result != nil {
		return result.(*domain.Campaign), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockReplyOracle mocks ReplyOracle interface
type MockReplyOracle struct {
	mock.Mock
}

func (m *MockReplyOracle) Reply(ctx context.Context, conversation *domain.Conversation, text string) (*domain.OracleReply, error) {
	args := m.Called(ctx, conversation, text)
	if result := args.Get(0); result != nil {
		return result.(*domain.OracleReply), args.Error(1)
	}
	return nil, args.Error(1)
}

// MockMessageSender mocks MessageSender interface
type MockMessageSender struct {
	mock.Mock
}

func (m *MockMessageSender) Send(ctx context.Context, to string, text string) (string, error) {
	args := m.Called(ctx, to, text)
	return args.String(0), args.Error(1)
}

// MockTemplateRenderer mocks TemplateRenderer interface.
// Render passes text through unchanged unless an expectation says otherwise.
type MockTemplateRenderer struct {
	mock.Mock
}

func (m *MockTemplateRenderer) Render(text string, vars map[string]string) (string, error) {
	args := m.Called(text, vars)
	if args.String(0) == "" && args.Error(1) == nil {
		return text, nil
	}
	return args.String(0), args.Error(1)
}

// ============================================================================
// Test Helper Functions
// ============================================================================

// testMocks bundles every mock a Processor needs
type testMocks struct {
	conversations *MockConversationRepository
	messages      *MockMessageRepository
	cache         *MockReplyCache
	users         *MockUserService
	content       *MockContentService
	oracle        *MockReplyOracle
	sender        *MockMessageSender
	renderer      *MockTemplateRenderer
}

// createTestProcessor creates a processor with mock collaborators
func createTestProcessor() (*Processor, *testMocks) {
	m := &testMocks{
		conversations: new(MockConversationRepository),
		messages:      new(MockMessageRepository),
		cache:         new(MockReplyCache),
		users:         new(MockUserService),
		content:       new(MockContentService),
		oracle:        new(MockReplyOracle),
		sender:        new(MockMessageSender),
		renderer:      new(MockTemplateRenderer),
	}

	state := NewStateMachine(m.conversations)
	classifier := NewClassifier(m.content, m.cache, 5*time.Minute)
	factory := NewMessageFactory(m.messages, m.conversations, m.renderer)

	processor := NewProcessor(state, classifier, factory, m.conversations, m.messages, m.users, m.content, m.oracle, m.sender)

	return processor, m
}

// passthroughRender sets the renderer to echo any text unchanged
func (m *testMocks) passthroughRender() {
	m.renderer.On("Render", mock.Anything, mock.Anything).Return("", nil)
}

// cacheMisses sets the cache to miss every lookup and accept writes
func (m *testMocks) cacheMisses() {
	m.cache.On("Get", mock.Anything, mock.Anything).Return(nil, false, nil)
	m.cache.On("Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return([]byte("{}"), nil)
}
