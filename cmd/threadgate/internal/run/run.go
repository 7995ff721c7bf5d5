package run

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/agent"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

// report is what run prints: the gate decision and the diagnostics it
// wrote, plus the thread size before and after background work.
type report struct {
	ThreadID     string                  `json:"threadId"`
	Decision     agent.Decision          `json:"decision"`
	Messages     int                     `json:"messages"`
	MessagesNow  int                     `json:"messagesAfterBackground,omitempty"`
	Observations int                     `json:"observations"`
	Diagnostics  thread.InputDiagnostics `json:"diagnostics"`
}

func runTurn(ctx context.Context, out io.Writer, threadID, message string, wait bool) error {
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := internal.OpenEnv(ctx, internal.Options{Runtime: true})
	if err != nil {
		return err
	}

	st := env.GetThread(ctx, threadID)
	st.AppendUser(message)

	res := env.Runtime.Pipeline().Run(ctx, st)
	rep := report{
		ThreadID:    st.ID(),
		Decision:    res.Decision,
		Messages:    st.Len(),
		Diagnostics: st.Metadata().InputHandler,
	}

	drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), internal.DrainTimeout(env.Config, wait))
	defer cancel()
	env.Close(drainCtx)

	if wait {
		rep.MessagesNow = st.Len()
	}
	rep.Observations = len(env.Runtime.Memory.Entries(st))

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(rep); err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	return nil
}
