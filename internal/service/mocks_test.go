package service

import (
	"context"
	"time"

	"github.com/stretchr/testify/mock"

	"github.com/replyon/replyon-backend/internal/collaborator"
	"github.com/replyon/replyon-backend/internal/domain"
	"github.com/replyon/replyon-backend/internal/repository"
)

// --- Mock ReviewStore ---

type mockReviewRepo struct {
	mock.Mock
}

func (m *mockReviewRepo) CreateIfAbsent(review *domain.Review) (bool, error) {
	args := m.Called(review)
	return args.Bool(0), args.Error(1)
}

func (m *mockReviewRepo) GetByReviewID(reviewID string) (*domain.Review, error) {
	args := m.Called(reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Review), args.Error(1)
}

func (m *mockReviewRepo) FindUnreplied() ([]domain.Review, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepo) FindPostable(window domain.PostingWindow, bossNeeded bool, limit int) ([]domain.Review, error) {
	args := m.Called(window, bossNeeded, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.Review), args.Error(1)
}

func (m *mockReviewRepo) SaveGenerationResult(reviewID string, result repository.GenerationUpdate) error {
	return m.Called(reviewID, result).Error(0)
}

func (m *mockReviewRepo) SetGenerationError(reviewID, errMsg string) error {
	return m.Called(reviewID, errMsg).Error(0)
}

func (m *mockReviewRepo) MarkProcessing(reviewIDs []string) error {
	return m.Called(reviewIDs).Error(0)
}

func (m *mockReviewRepo) MarkPosted(reviewID, finalText string, postedAt time.Time) error {
	return m.Called(reviewID, finalText, postedAt).Error(0)
}

func (m *mockReviewRepo) MarkFailed(reviewID, errMsg string) error {
	return m.Called(reviewID, errMsg).Error(0)
}

func (m *mockReviewRepo) CountPendingByStore(storeCode string) (int64, error) {
	args := m.Called(storeCode)
	return args.Get(0).(int64), args.Error(1)
}

// --- Mock PolicyStore ---

type mockPolicyRepo struct {
	mock.Mock
}

func (m *mockPolicyRepo) FindActiveAutoReply() ([]domain.StorePolicy, error) {
	args := m.Called()
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.StorePolicy), args.Error(1)
}

func (m *mockPolicyRepo) GetByStoreCode(storeCode string) (*domain.StorePolicy, error) {
	args := m.Called(storeCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StorePolicy), args.Error(1)
}

func (m *mockPolicyRepo) GetByPlatformAccount(platform domain.Platform, platformCode string) (*domain.StorePolicy, error) {
	args := m.Called(platform, platformCode)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.StorePolicy), args.Error(1)
}

func (m *mockPolicyRepo) UpdateLastError(storeCode, errMsg string) error {
	return m.Called(storeCode, errMsg).Error(0)
}

// --- Mock HistoryStore ---

type mockHistoryRepo struct {
	mock.Mock
}

func (m *mockHistoryRepo) Create(entry *domain.GenerationHistoryEntry) error {
	return m.Called(entry).Error(0)
}

func (m *mockHistoryRepo) ListByReview(reviewID string) ([]domain.GenerationHistoryEntry, error) {
	args := m.Called(reviewID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.GenerationHistoryEntry), args.Error(1)
}

// --- Fake collaborators ---

type fakeCrawler struct {
	loginErr    error
	loginDenied bool
	reviews     []collaborator.RawReview
	fetchErr    error
	logins      int
	fetches     int
}

func (f *fakeCrawler) Login(_ context.Context, _ collaborator.Credentials) (bool, error) {
	f.logins++
	if f.loginErr != nil {
		return false, f.loginErr
	}
	if f.loginDenied {
		return false, nil
	}
	return true, nil
}

func (f *fakeCrawler) FetchUnrepliedReviews(_ context.Context, _ string, _ int) ([]collaborator.RawReview, error) {
	f.fetches++
	if f.fetchErr != nil {
		return nil, f.fetchErr
	}
	return f.reviews, nil
}

type fakePoster struct {
	results  []collaborator.PostResult
	err      error
	calls    int
	lastSeen []collaborator.PostItem
}

func (f *fakePoster) PostBatch(_ context.Context, _ collaborator.Credentials, items []collaborator.PostItem) ([]collaborator.PostResult, error) {
	f.calls++
	f.lastSeen = items
	if f.err != nil {
		return nil, f.err
	}
	if f.results != nil {
		return f.results, nil
	}
	results := make([]collaborator.PostResult, len(items))
	for i, item := range items {
		results[i] = collaborator.PostResult{ReviewID: item.ReviewID, Success: true}
	}
	return results, nil
}
