package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/replyon/replyon-backend/internal/collaborator"
	"github.com/replyon/replyon-backend/internal/common"
	"github.com/replyon/replyon-backend/internal/domain"
	"github.com/replyon/replyon-backend/pkg/vault"
)

func testVault(t *testing.T) *vault.Vault {
	t.Helper()
	v, err := vault.New("test-encryption-key")
	if err != nil {
		t.Fatal(err)
	}
	return v
}

func testRegistry(baemin *fakeCrawler, poster *fakePoster) *collaborator.Registry {
	set := collaborator.PlatformSet{Crawler: baemin, Poster: poster}
	return collaborator.NewRegistry(set, set, set, set)
}

func baeminPolicy(storeCode string) domain.StorePolicy {
	return domain.StorePolicy{
		StoreCode:        storeCode,
		Platform:         domain.PlatformBaemin,
		PlatformCode:     "pc-" + storeCode,
		PlatformID:       "owner@example.com",
		PlatformPW:       "plain-password",
		AutoReplyEnabled: true,
		IsActive:         true,
	}
}

func TestCollectAllStoresNewReviews(t *testing.T) {
	policyRepo := new(mockPolicyRepo)
	reviewRepo := new(mockReviewRepo)
	crawler := &fakeCrawler{reviews: []collaborator.RawReview{
		{NativeID: "n1", ReviewName: "홍길동님", Rating: intPtrSvc(5), Content: "맛있어요", RelativeDate: "어제"},
		{NativeID: "n2", ReviewName: "김철수", Rating: intPtrSvc(4), Content: "좋아요", RelativeDate: "3일 전"},
	}}

	policyRepo.On("FindActiveAutoReply").Return([]domain.StorePolicy{baeminPolicy("s1")}, nil)
	policyRepo.On("UpdateLastError", "s1", "").Return(nil)
	reviewRepo.On("CreateIfAbsent", mock.AnythingOfType("*domain.Review")).Return(true, nil)

	svc := NewCollectorService(policyRepo, reviewRepo, testRegistry(crawler, nil),
		testVault(t), time.Minute, 50)

	summary, err := svc.CollectAll(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, 2, summary.Collected)
	assert.Equal(t, 0, summary.Duplicates)
	assert.Empty(t, summary.Errors)
	assert.Equal(t, 1, crawler.logins)
	reviewRepo.AssertNumberOfCalls(t, "CreateIfAbsent", 2)
	policyRepo.AssertExpectations(t)
}

func TestCollectAllMapsRawReview(t *testing.T) {
	policyRepo := new(mockPolicyRepo)
	reviewRepo := new(mockReviewRepo)
	crawler := &fakeCrawler{reviews: []collaborator.RawReview{
		{NativeID: "native-1", ReviewName: "홍길동님", Rating: intPtrSvc(5), Content: "맛있어요", RelativeDate: "어제", OrderedMenu: "치킨"},
	}}

	policyRepo.On("FindActiveAutoReply").Return([]domain.StorePolicy{baeminPolicy("s1")}, nil)
	policyRepo.On("UpdateLastError", "s1", "").Return(nil)

	var captured *domain.Review
	reviewRepo.On("CreateIfAbsent", mock.AnythingOfType("*domain.Review")).
		Run(func(args mock.Arguments) { captured = args.Get(0).(*domain.Review) }).
		Return(true, nil)

	svc := NewCollectorService(policyRepo, reviewRepo, testRegistry(crawler, nil),
		testVault(t), time.Minute, 50)

	_, err := svc.CollectAll(context.Background())
	assert.NoError(t, err)

	assert.Equal(t, domain.ReviewIdentity(domain.PlatformBaemin, "s1", "native-1"), captured.ReviewID)
	assert.Equal(t, "s1", captured.StoreCode)
	assert.Equal(t, "홍길동", captured.ReviewName)
	assert.Equal(t, "치킨", captured.OrderedMenu)
	assert.Equal(t, domain.StatusPending, captured.Status)
	assert.Equal(t, truncateToDate(time.Now()).AddDate(0, 0, -1), captured.ReviewDate)
}

func TestCollectAllCountsDuplicates(t *testing.T) {
	policyRepo := new(mockPolicyRepo)
	reviewRepo := new(mockReviewRepo)
	crawler := &fakeCrawler{reviews: []collaborator.RawReview{
		{NativeID: "n1", Content: "리뷰1", RelativeDate: "오늘"},
		{NativeID: "n2", Content: "리뷰2", RelativeDate: "오늘"},
	}}

	policyRepo.On("FindActiveAutoReply").Return([]domain.StorePolicy{baeminPolicy("s1")}, nil)
	policyRepo.On("UpdateLastError", "s1", "").Return(nil)
	reviewRepo.On("CreateIfAbsent", mock.AnythingOfType("*domain.Review")).Return(false, nil)

	svc := NewCollectorService(policyRepo, reviewRepo, testRegistry(crawler, nil),
		testVault(t), time.Minute, 50)

	summary, err := svc.CollectAll(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, summary.Collected)
	assert.Equal(t, 2, summary.Duplicates)
}

func TestCollectAllSkipsAlreadyReplied(t *testing.T) {
	policyRepo := new(mockPolicyRepo)
	reviewRepo := new(mockReviewRepo)
	crawler := &fakeCrawler{reviews: []collaborator.RawReview{
		{NativeID: "n1", Content: "이미 답글 있음", RelativeDate: "오늘", HasReply: true},
	}}

	policyRepo.On("FindActiveAutoReply").Return([]domain.StorePolicy{baeminPolicy("s1")}, nil)
	policyRepo.On("UpdateLastError", "s1", "").Return(nil)

	svc := NewCollectorService(policyRepo, reviewRepo, testRegistry(crawler, nil),
		testVault(t), time.Minute, 50)

	summary, err := svc.CollectAll(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 0, summary.Collected)
	reviewRepo.AssertNotCalled(t, "CreateIfAbsent", mock.Anything)
}

func TestCollectAllIsolatesStoreFailures(t *testing.T) {
	policyRepo := new(mockPolicyRepo)
	reviewRepo := new(mockReviewRepo)
	crawler := &fakeCrawler{loginErr: errors.New("로그인 실패")}

	policyRepo.On("FindActiveAutoReply").Return(
		[]domain.StorePolicy{baeminPolicy("s1"), baeminPolicy("s2")}, nil)
	policyRepo.On("UpdateLastError", "s1", mock.Anything).Return(nil)
	policyRepo.On("UpdateLastError", "s2", mock.Anything).Return(nil)

	svc := NewCollectorService(policyRepo, reviewRepo, testRegistry(crawler, nil),
		testVault(t), time.Minute, 50)

	summary, err := svc.CollectAll(context.Background())

	assert.NoError(t, err)
	assert.Len(t, summary.Errors, 2)
	assert.Contains(t, summary.Errors["s1"], "로그인 실패")
	// 두 매장 모두 시도되었다
	assert.Equal(t, 2, crawler.logins)
}

func TestCollectAllRecordsDeniedLogin(t *testing.T) {
	// 에이전트가 오류 없이 로그인 거부를 보고해도 실패로 기록되고
	// 리뷰 조회는 시도되지 않는다
	policyRepo := new(mockPolicyRepo)
	reviewRepo := new(mockReviewRepo)
	crawler := &fakeCrawler{loginDenied: true}

	policyRepo.On("FindActiveAutoReply").Return([]domain.StorePolicy{baeminPolicy("s1")}, nil)
	policyRepo.On("UpdateLastError", "s1", common.ErrCrawlerLoginFailed.Error()).Return(nil)

	svc := NewCollectorService(policyRepo, reviewRepo, testRegistry(crawler, nil),
		testVault(t), time.Minute, 50)

	summary, err := svc.CollectAll(context.Background())

	assert.NoError(t, err)
	assert.Equal(t, common.ErrCrawlerLoginFailed.Error(), summary.Errors["s1"])
	assert.Equal(t, 0, crawler.fetches)
	policyRepo.AssertExpectations(t)
}

func TestCollectAllDecryptsStoredPassword(t *testing.T) {
	policyRepo := new(mockPolicyRepo)
	reviewRepo := new(mockReviewRepo)
	v := testVault(t)

	encrypted, err := v.Encrypt("secret-pw")
	assert.NoError(t, err)

	policy := baeminPolicy("s1")
	policy.PlatformPW = encrypted

	crawler := &fakeCrawler{}
	policyRepo.On("FindActiveAutoReply").Return([]domain.StorePolicy{policy}, nil)
	policyRepo.On("UpdateLastError", "s1", "").Return(nil)

	svc := NewCollectorService(policyRepo, reviewRepo, testRegistry(crawler, nil), v, time.Minute, 50)

	_, err = svc.CollectAll(context.Background())
	assert.NoError(t, err)
	assert.Equal(t, 1, crawler.logins)
}

func TestCollectStoreUnknown(t *testing.T) {
	policyRepo := new(mockPolicyRepo)
	reviewRepo := new(mockReviewRepo)
	policyRepo.On("GetByStoreCode", "missing").Return(nil, errors.New("store not found"))

	svc := NewCollectorService(policyRepo, reviewRepo, testRegistry(&fakeCrawler{}, nil),
		testVault(t), time.Minute, 50)

	_, err := svc.CollectStore(context.Background(), "missing")
	assert.Error(t, err)
}

func intPtrSvc(v int) *int {
	return &v
}
