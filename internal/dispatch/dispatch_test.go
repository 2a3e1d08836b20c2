package dispatch

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/samber/mo"
	"github.com/stretchr/testify/require"

	"github.com/sysjosh/digestd/internal/digest"
	"github.com/sysjosh/digestd/internal/metrics"
	"github.com/sysjosh/digestd/internal/model"
	"github.com/sysjosh/digestd/internal/store/storetest"
	"github.com/sysjosh/digestd/pkg/test/testutil"
)

type fakeMailer struct {
	sent     []Message
	failures map[string]error
}

func (m *fakeMailer) Send(ctx context.Context, message Message) error {
	if err := m.failures[message.To]; err != nil {
		return err
	}
	m.sent = append(m.sent, message)
	return nil
}

func newDispatcher(t *testing.T, memory *storetest.Memory, mailer Mailer) *Dispatcher {
	composer, err := digest.NewComposer(digest.Options{
		Title:   digest.DefaultTitle,
		BaseURL: testutil.URL(t, "https://weekly.example.com"),
	})
	require.NoError(t, err)
	return NewDispatcher(memory, memory, composer, mailer, digest.DefaultSubject, metrics.New())
}

func selectedArticle(memory *storetest.Memory, title string, url string) model.Article {
	return memory.AddArticle(model.Article{Title: title, URL: url, Category: mo.Some("Tech"), Selected: true})
}

func TestDispatch(t *testing.T) {
	t.Parallel()

	memory := storetest.NewMemory()
	first := selectedArticle(memory, "First", "https://example.com/1")
	second := selectedArticle(memory, "Second", "https://example.com/2")
	memory.AddArticle(model.Article{Title: "Not selected", URL: "https://example.com/3"})

	memory.AddSubscriber(model.Subscriber{Email: "a@example.com", Status: model.SubscriberStatusActive, UnsubscribeToken: "tok-a"})
	memory.AddSubscriber(model.Subscriber{Email: "b@example.com", Status: model.SubscriberStatusActive, UnsubscribeToken: "tok-b"})
	memory.AddSubscriber(model.Subscriber{Email: "", Status: model.SubscriberStatusActive})
	memory.AddSubscriber(model.Subscriber{Email: "c@example.com", Status: model.SubscriberStatusInactive})

	mailer := &fakeMailer{failures: map[string]error{"b@example.com": errors.New("550 mailbox unavailable")}}
	memory.UpdateErrs[second.ID] = errors.New("conflict")

	report, err := newDispatcher(t, memory, mailer).Run(testutil.Context(t))
	require.NoError(t, err)
	require.Equal(t, Report{
		Articles:    2,
		Subscribers: 3,
		Sent:        1,
		Failed:      1,
		Skipped:     1,
		Reset:       1,
		ResetFailed: 1,
	}, report)

	require.Len(t, mailer.sent, 1)
	message := mailer.sent[0]
	require.Equal(t, "a@example.com", message.To)
	require.Equal(t, digest.DefaultSubject, message.Subject)
	require.Contains(t, message.HTML, "First")
	require.Contains(t, message.HTML, "Second")
	require.Contains(t, message.HTML, "unsubscribe?token=tok-a")
	require.NotContains(t, message.HTML, "Not selected")

	// The selection is cleared even though one of the sends has failed.
	require.Equal(t, 2, memory.UpdateCalls)
	for _, article := range memory.Articles() {
		require.Equal(t, article.ID == second.ID, article.Selected, article.Title)
	}
	require.NotEqual(t, first.ID, second.ID)
}

func TestDispatchAllSendsFail(t *testing.T) {
	t.Parallel()

	memory := storetest.NewMemory()
	selectedArticle(memory, "First", "https://example.com/1")
	memory.AddSubscriber(model.Subscriber{Email: "a@example.com", Status: model.SubscriberStatusActive})

	mailer := &fakeMailer{failures: map[string]error{"a@example.com": errors.New("auth failed")}}
	report, err := newDispatcher(t, memory, mailer).Run(testutil.Context(t))
	require.NoError(t, err)
	require.Equal(t, 1, report.Failed)
	require.Equal(t, 1, report.Reset)
	require.False(t, memory.Articles()[0].Selected)
}

func TestDispatchNothingToDo(t *testing.T) {
	t.Parallel()

	t.Run("no selected articles", func(t *testing.T) {
		t.Parallel()

		memory := storetest.NewMemory()
		memory.AddArticle(model.Article{Title: "Not selected", URL: "https://example.com/"})
		memory.AddSubscriber(model.Subscriber{Email: "a@example.com", Status: model.SubscriberStatusActive})

		mailer := &fakeMailer{}
		report, err := newDispatcher(t, memory, mailer).Run(testutil.Context(t))
		require.NoError(t, err)
		require.Equal(t, Report{}, report)
		require.Empty(t, mailer.sent)
		require.Zero(t, memory.UpdateCalls)
	})

	t.Run("no active subscribers", func(t *testing.T) {
		t.Parallel()

		memory := storetest.NewMemory()
		selectedArticle(memory, "First", "https://example.com/1")
		memory.AddSubscriber(model.Subscriber{Email: "a@example.com", Status: model.SubscriberStatusInactive})

		mailer := &fakeMailer{}
		report, err := newDispatcher(t, memory, mailer).Run(testutil.Context(t))
		require.NoError(t, err)
		require.Equal(t, Report{Articles: 1}, report)
		require.Empty(t, mailer.sent)
		require.Zero(t, memory.UpdateCalls)
		require.True(t, memory.Articles()[0].Selected)
	})
}

func TestDispatchQueryErrors(t *testing.T) {
	t.Parallel()

	memory := storetest.NewMemory()
	selectedArticle(memory, "First", "https://example.com/1")
	memory.ListSubscribersErr = errors.New("unauthorized")

	_, err := newDispatcher(t, memory, &fakeMailer{}).Run(testutil.Context(t))
	require.ErrorIs(t, err, memory.ListSubscribersErr)
	require.Zero(t, memory.UpdateCalls)

	memory.ListArticlesErr = errors.New("rate limited")
	_, err = newDispatcher(t, memory, &fakeMailer{}).Run(testutil.Context(t))
	require.ErrorIs(t, err, memory.ListArticlesErr)
}

func TestSMTPMessage(t *testing.T) {
	t.Parallel()

	mailer := NewSMTPMailer(SMTPConfig{User: "weekly@example.com", Password: "secret"})
	require.Equal(t, DefaultSMTPHost, mailer.config.Host)
	require.Equal(t, DefaultSMTPPort, mailer.config.Port)

	msg, err := mailer.newMessage(Message{
		To:      "reader@example.com",
		Subject: "Weekly digest",
		HTML:    "<p>Hello</p>",
	})
	require.NoError(t, err)

	var buf bytes.Buffer
	_, err = msg.WriteTo(&buf)
	require.NoError(t, err)

	raw := buf.String()
	for _, expected := range []string{
		"reader@example.com", "weekly@example.com", "SysJosh Weekly (no-reply)", "Subject: Weekly digest",
		"text/html", "Hello",
	} {
		require.True(t, strings.Contains(raw, expected), expected)
	}

	_, err = mailer.newMessage(Message{To: "not an address"})
	require.Error(t, err)
}
