package agent

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

func newSummaryService(model LanguageModel) *ConversationSummaryService {
	return NewConversationSummaryService(model, DefaultSummaryOptions(), nil)
}

func TestSelectSummaryBatch(t *testing.T) {
	st := buildThread("t1", 85)
	msgs := st.Messages()

	batch := selectSummaryBatch(msgs, DefaultSummaryFraction)
	// 84 non-system messages, minus the latest user message, floor(83 * 0.25)
	require.Len(t, batch, 20)
	assert.Equal(t, msgs[1].ID, batch[0].ID)
	assert.Equal(t, msgs[20].ID, batch[19].ID)
}

func TestSelectSummaryBatch_SkipsSummaries(t *testing.T) {
	st := buildThread("t1", 10)
	require.NoError(t, st.Update(func(d *thread.Data) error {
		d.Messages[1] = thread.NewSummaryMessage("- 🔴 old digest")
		return nil
	}))
	msgs := st.Messages()

	batch := selectSummaryBatch(msgs, 0.5)
	require.NotEmpty(t, batch)
	assert.Equal(t, msgs[2].ID, batch[0].ID)
	for _, m := range batch {
		assert.False(t, m.Summary)
		assert.NotEqual(t, thread.RoleSystem, m.Role)
	}
}

func TestConversationSummary_Commits(t *testing.T) {
	model := &mockModel{responses: []string{"Here you go:\n" + testDigest}}
	svc := newSummaryService(model)
	st := buildThread("t1", 85)
	before := st.Messages()

	started, err := svc.TriggerBackgroundSummarization(context.Background(), st)
	require.NoError(t, err)
	assert.True(t, started)
	svc.Wait()

	after := st.Messages()
	require.Len(t, after, 85-20+1)
	assert.Equal(t, before[0], after[0], "system message is preserved verbatim")
	assert.True(t, after[1].Summary)
	assert.Equal(t, thread.RoleAssistant, after[1].Role)
	assert.Contains(t, after[1].Content, "- 🔴 user is planning a trip to Lisbon")
	assert.NotContains(t, after[1].Content, "Here you go")
	assert.Equal(t, before[21].ID, after[2].ID)
	assert.Equal(t, before[84].ID, after[len(after)-1].ID)

	summaries := st.Metadata().ConversationSummaries
	require.Len(t, summaries, 1)
	assert.Equal(t, 20, summaries[0].CoveredMessageCount)
	assert.Equal(t, after[1].ID, summaries[0].MessageID)

	report, ok := svc.LastRun("t1")
	require.True(t, ok)
	assert.Equal(t, "committed", report.Outcome)
	assert.Equal(t, RunIdle, svc.State("t1"))
	assert.Equal(t, 1, model.callCount())
}

func TestConversationSummary_SingleFlight(t *testing.T) {
	model, release := blockingModel(testDigest)
	svc := newSummaryService(model)
	st := buildThread("t1", 85)

	var wg sync.WaitGroup
	var mu sync.Mutex
	startedCount := 0
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := svc.TriggerBackgroundSummarization(context.Background(), st)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				startedCount++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	<-model.entered
	assert.Equal(t, RunRunning, svc.State("t1"))

	close(release)
	svc.Wait()

	assert.Equal(t, 1, startedCount)
	assert.Equal(t, 1, model.callCount())
	assert.Len(t, st.Metadata().ConversationSummaries, 1)
	assert.Len(t, st.Messages(), 85-20+1)
}

func TestConversationSummary_NoDataLossOnFailure(t *testing.T) {
	tests := []struct {
		name  string
		model *mockModel
	}{
		{"llm error", &mockModel{err: errors.New("upstream 503")}},
		{"empty response", &mockModel{responses: []string{"   "}}},
		{"malformed response", &mockModel{responses: []string{"I cannot summarize this."}}},
		{"panic", &mockModel{panicWith: "boom"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := newSummaryService(tt.model)
			st := buildThread("t1", 85)
			before := st.Messages()

			started, err := svc.TriggerBackgroundSummarization(context.Background(), st)
			require.NoError(t, err)
			require.True(t, started)
			svc.Wait()

			assert.Equal(t, before, st.Messages())
			assert.Empty(t, st.Metadata().ConversationSummaries)
			report, ok := svc.LastRun("t1")
			require.True(t, ok)
			assert.Equal(t, "aborted", report.Outcome)
			assert.NotEmpty(t, report.Reason)
			assert.Equal(t, RunIdle, svc.State("t1"))
		})
	}
}

func TestConversationSummary_RetriggersAfterFailure(t *testing.T) {
	model := &mockModel{err: errors.New("timeout")}
	svc := newSummaryService(model)
	st := buildThread("t1", 85)

	_, _ = svc.TriggerBackgroundSummarization(context.Background(), st)
	svc.Wait()

	model.mu.Lock()
	model.err = nil
	model.responses = []string{testDigest}
	model.mu.Unlock()

	started, err := svc.TriggerBackgroundSummarization(context.Background(), st)
	require.NoError(t, err)
	require.True(t, started)
	svc.Wait()
	assert.Len(t, st.Metadata().ConversationSummaries, 1)
}

func TestConversationSummary_TimeoutReleasesGuard(t *testing.T) {
	model, release := blockingModel(testDigest)
	defer close(release)
	svc := NewConversationSummaryService(model, SummaryOptions{Timeout: 50 * time.Millisecond}, nil)
	st := buildThread("t1", 85)
	before := st.Messages()

	started, err := svc.TriggerBackgroundSummarization(context.Background(), st)
	require.NoError(t, err)
	require.True(t, started)
	<-model.entered
	svc.Wait()

	assert.Equal(t, before, st.Messages())
	assert.Empty(t, st.Metadata().ConversationSummaries)
	assert.Equal(t, RunIdle, svc.State("t1"))
	report, ok := svc.LastRun("t1")
	require.True(t, ok)
	assert.Equal(t, "aborted", report.Outcome)
	assert.Contains(t, report.Reason, context.DeadlineExceeded.Error())

	started, err = svc.TriggerBackgroundSummarization(context.Background(), st)
	require.NoError(t, err)
	assert.True(t, started)
	<-model.entered
	svc.Wait()
}

func TestConversationSummary_BatchTooSmall(t *testing.T) {
	model := &mockModel{responses: []string{testDigest}}
	svc := newSummaryService(model)
	st := buildThread("t1", 10)
	before := st.Messages()

	_, err := svc.TriggerBackgroundSummarization(context.Background(), st)
	require.NoError(t, err)
	svc.Wait()

	assert.Zero(t, model.callCount())
	assert.Equal(t, before, st.Messages())
	report, _ := svc.LastRun("t1")
	assert.Equal(t, "aborted", report.Outcome)
	assert.Contains(t, report.Reason, ErrBatchTooSmall.Error())
}

func TestConversationSummary_AbortsWhenBatchChanges(t *testing.T) {
	model, release := blockingModel(testDigest)
	svc := newSummaryService(model)
	st := buildThread("t1", 85)

	_, err := svc.TriggerBackgroundSummarization(context.Background(), st)
	require.NoError(t, err)
	<-model.entered

	require.NoError(t, st.Update(func(d *thread.Data) error {
		d.Messages = append(d.Messages[:1], d.Messages[2:]...)
		return nil
	}))
	before := st.Messages()

	close(release)
	svc.Wait()

	assert.Equal(t, before, st.Messages())
	report, _ := svc.LastRun("t1")
	assert.Equal(t, "aborted", report.Outcome)
	assert.Contains(t, report.Reason, ErrBatchChanged.Error())
}

func TestConversationSummary_NewMessagesDuringRunSurvive(t *testing.T) {
	model, release := blockingModel(testDigest)
	svc := newSummaryService(model)
	st := buildThread("t1", 85)

	_, err := svc.TriggerBackgroundSummarization(context.Background(), st)
	require.NoError(t, err)
	<-model.entered
	late := st.AppendUser("arrived while summarizing")

	close(release)
	svc.Wait()

	msgs := st.Messages()
	assert.Len(t, msgs, 85-20+1+1)
	assert.Equal(t, late.ID, msgs[len(msgs)-1].ID)
}

func TestConversationSummary_NilState(t *testing.T) {
	svc := newSummaryService(&mockModel{})
	started, err := svc.TriggerBackgroundSummarization(context.Background(), nil)
	assert.ErrorIs(t, err, ErrNilState)
	assert.False(t, started)
}

func TestConversationSummary_DetachedFromCallerContext(t *testing.T) {
	model, release := blockingModel(testDigest)
	svc := newSummaryService(model)
	st := buildThread("t1", 85)

	ctx, cancel := context.WithCancel(context.Background())
	_, err := svc.TriggerBackgroundSummarization(ctx, st)
	require.NoError(t, err)
	<-model.entered
	cancel()

	close(release)
	svc.Wait()
	assert.Len(t, st.Metadata().ConversationSummaries, 1)
}

func TestConversationSummary_Span(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	t.Cleanup(func() { otel.SetTracerProvider(noop.NewTracerProvider()) })

	svc := newSummaryService(&mockModel{responses: []string{testDigest}})
	st := buildThread("t-span", 85)
	_, err := svc.TriggerBackgroundSummarization(context.Background(), st)
	require.NoError(t, err)
	svc.Wait()

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "summary.run", spans[0].Name())
	assert.Contains(t, spans[0].Attributes(), attribute.String("thread.id", "t-span"))
	assert.Contains(t, spans[0].Attributes(), attribute.String("run.outcome", "committed"))
}
