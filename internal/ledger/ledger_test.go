package ledger

import (
	"context"
	"sync"
	"testing"

	"usersbox-bot/internal/models"
	"usersbox-bot/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// balanceRepo implements the consume/credit half of the user repository over
// an in-memory map, with the same conditional-decrement semantics as the
// SQL implementation.
type balanceRepo struct {
	repository.UserRepository

	mu       sync.Mutex
	balances map[int64]int
}

func newBalanceRepo(balances map[int64]int) *balanceRepo {
	return &balanceRepo{balances: balances}
}

func (r *balanceRepo) ConsumeAttempt(ctx context.Context, telegramID int64) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.balances[telegramID] <= 0 {
		return false, nil
	}
	r.balances[telegramID]--
	return true, nil
}

func (r *balanceRepo) Credit(ctx context.Context, telegramID int64, amount int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.balances[telegramID]; !ok {
		return repository.ErrUserNotFound
	}
	r.balances[telegramID] += amount
	return nil
}

func (r *balanceRepo) balance(telegramID int64) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balances[telegramID]
}

func TestTryConsumeDecrements(t *testing.T) {
	repo := newBalanceRepo(map[int64]int{42: 3})
	l := New(repo)

	user := &models.User{TelegramID: 42, AttemptsRemaining: 3}
	result, err := l.TryConsume(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, Consumed, result)
	assert.Equal(t, 2, repo.balance(42))
}

func TestTryConsumeDeniedWhenExhausted(t *testing.T) {
	repo := newBalanceRepo(map[int64]int{42: 0})
	l := New(repo)

	user := &models.User{TelegramID: 42}
	result, err := l.TryConsume(context.Background(), user)
	require.NoError(t, err)
	assert.Equal(t, Denied, result)
	assert.Equal(t, 0, repo.balance(42))
}

func TestTryConsumeUnlimitedSkipsStorage(t *testing.T) {
	repo := newBalanceRepo(map[int64]int{7: 0})
	l := New(repo)

	admin := &models.User{TelegramID: 7, IsAdmin: true}
	result, err := l.TryConsume(context.Background(), admin)
	require.NoError(t, err)
	assert.Equal(t, Consumed, result)
	assert.Equal(t, 0, repo.balance(7), "unlimited consume must not touch the counter")
}

// With k attempts and n > k concurrent consumers, exactly k must succeed and
// the balance must land on zero, never below.
func TestTryConsumeConcurrent(t *testing.T) {
	const (
		attempts  = 5
		consumers = 50
	)
	repo := newBalanceRepo(map[int64]int{42: attempts})
	l := New(repo)
	user := &models.User{TelegramID: 42, AttemptsRemaining: attempts}

	var wg sync.WaitGroup
	results := make(chan ConsumeResult, consumers)
	for i := 0; i < consumers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			result, err := l.TryConsume(context.Background(), user)
			assert.NoError(t, err)
			results <- result
		}()
	}
	wg.Wait()
	close(results)

	consumed := 0
	for result := range results {
		if result == Consumed {
			consumed++
		}
	}
	assert.Equal(t, attempts, consumed)
	assert.Equal(t, 0, repo.balance(42))
}

func TestCreditUnknownUser(t *testing.T) {
	repo := newBalanceRepo(map[int64]int{})
	l := New(repo)

	err := l.Credit(context.Background(), 99, 5)
	assert.ErrorIs(t, err, repository.ErrUserNotFound)
}

func TestCreditAddsAttempts(t *testing.T) {
	repo := newBalanceRepo(map[int64]int{42: 1})
	l := New(repo)

	require.NoError(t, l.Credit(context.Background(), 42, 4))
	assert.Equal(t, 5, repo.balance(42))
}
