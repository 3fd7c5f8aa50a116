package handlers

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/ian-seymour/gamma/internal/services"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPasswordReset(t *testing.T) {
	env := setupTestHandler(t)
	env.createUser(t, "a@b.com", "Secret1!")

	t.Run("Unknown Email", func(t *testing.T) {
		client := env.client()
		w := client.postForm("/auth/reset-password", url.Values{"email": {"nobody@b.com"}})
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/auth/login", w.Header().Get("Location"))
		assert.Empty(t, env.mailer.sent())

		w = client.get("/auth/login")
		assert.Contains(t, w.Body.String(), resetRequestedMessage)
	})

	t.Run("Invalid Email", func(t *testing.T) {
		w := env.client().postForm("/auth/reset-password", url.Values{"email": {"nope"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Full Flow", func(t *testing.T) {
		client := env.client()
		w := client.postForm("/auth/reset-password", url.Values{"email": {"a@b.com"}})
		assert.Equal(t, http.StatusFound, w.Code)

		w = client.get("/auth/login")
		assert.Contains(t, w.Body.String(), resetRequestedMessage)

		links := env.mailer.sent()
		require.Len(t, links, 1)
		require.True(t, strings.HasPrefix(links[0], "http://gamma.test/auth/reset-password/"))
		path := strings.TrimPrefix(links[0], "http://gamma.test")

		w = client.get(path)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "Choose a New Password")

		w = client.postForm(path, url.Values{"password": {"NewSecret2!"}, "confirm_password": {"Mismatch!"}})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = client.postForm(path, url.Values{"password": {"NewSecret2!"}, "confirm_password": {"NewSecret2!"}})
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/auth/login", w.Header().Get("Location"))

		w = client.postForm("/auth/login", url.Values{"email": {"a@b.com"}, "password": {"Secret1!"}})
		assert.Equal(t, "/auth/login", w.Header().Get("Location"))
		client.login(t, "a@b.com", "NewSecret2!")
	})

	t.Run("Invalid Token", func(t *testing.T) {
		client := env.client()
		w := client.get("/auth/reset-password/not-a-token")
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/auth/reset-password", w.Header().Get("Location"))

		w = client.get("/auth/reset-password")
		assert.Contains(t, w.Body.String(), "invalid or has expired")

		w = client.postForm("/auth/reset-password/not-a-token", url.Values{"password": {"NewSecret2!"}, "confirm_password": {"NewSecret2!"}})
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/auth/reset-password", w.Header().Get("Location"))
	})

	t.Run("Token From Another Secret", func(t *testing.T) {
		user, err := env.credentials.GetByEmail(context.Background(), "a@b.com")
		require.NoError(t, err)
		foreign, err := services.NewResetTokenManager("other-secret", services.PasswordResetSalt).Issue(user.ID)
		require.NoError(t, err)

		w := env.client().get("/auth/reset-password/" + foreign)
		assert.Equal(t, http.StatusFound, w.Code)
		assert.Equal(t, "/auth/reset-password", w.Header().Get("Location"))
	})
}

// gatedMailer does not return until release is closed.
type gatedMailer struct {
	release chan struct{}
	inner   recordingMailer
}

func (m *gatedMailer) SendPasswordReset(ctx context.Context, to, resetURL string) error {
	<-m.release
	return m.inner.SendPasswordReset(ctx, to, resetURL)
}

func TestPasswordReset_SlowMailDoesNotDelayResponse(t *testing.T) {
	env := setupTestHandler(t)
	env.createUser(t, "a@b.com", "Secret1!")

	slow := &gatedMailer{release: make(chan struct{})}
	queue := services.NewMailQueue(slow, discardHandlerLogger())
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go queue.Start(ctx)
	env.h.mailer = queue

	done := make(chan int, 1)
	go func() {
		w := env.client().postForm("/auth/reset-password", url.Values{"email": {"a@b.com"}})
		done <- w.Code
	}()

	select {
	case code := <-done:
		assert.Equal(t, http.StatusFound, code)
	case <-time.After(2 * time.Second):
		close(slow.release)
		t.Fatal("reset request waited for mail delivery")
	}
	assert.Empty(t, slow.inner.sent())

	close(slow.release)
	assert.Eventually(t, func() bool {
		return len(slow.inner.sent()) == 1
	}, time.Second, 10*time.Millisecond)
}
