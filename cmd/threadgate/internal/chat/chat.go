package chat

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"

	"github.com/sulla-ai/sulla-desktop-sub001/cmd/threadgate/internal"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/agent"
	"github.com/sulla-ai/sulla-desktop-sub001/pkg/thread"
)

const prompt = "you> "

func chatCmd(ctx context.Context, threadID string) error {
	if ctx == nil {
		ctx = context.Background()
	}
	env, err := internal.OpenEnv(ctx, internal.Options{Runtime: true, Reply: true})
	if err != nil {
		return err
	}
	defer func() {
		drainCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), internal.DrainTimeout(env.Config, true))
		defer cancel()
		env.Close(drainCtx)
	}()

	st := env.GetThread(ctx, threadID)
	pipeline := env.Runtime.Pipeline()
	fmt.Printf("%s Chatting on thread %s (%d messages). Type exit to quit.\n\n", internal.Logo, st.ID(), st.Len())

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          prompt,
		HistoryFile:     filepath.Join(os.TempDir(), ".threadgate_history"),
		HistoryLimit:    100,
		InterruptPrompt: "^C",
		EOFPrompt:       "exit",
	})
	if err != nil {
		fmt.Printf("Error initializing readline: %v\n", err)
		fmt.Println("Falling back to simple input mode...")
		return simpleLoop(ctx, os.Stdin, os.Stdout, pipeline, env, st)
	}
	defer rl.Close()

	for {
		line, err := rl.Readline()
		if err != nil {
			if errors.Is(err, readline.ErrInterrupt) || errors.Is(err, io.EOF) {
				fmt.Println("\nGoodbye!")
				return nil
			}
			fmt.Printf("Error reading input: %v\n", err)
			continue
		}
		if !handleLine(ctx, os.Stdout, pipeline, env, st, line) {
			return nil
		}
	}
}

func simpleLoop(ctx context.Context, in io.Reader, out io.Writer, p *agent.Pipeline, env *internal.Env, st *thread.ThreadState) error {
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for {
		fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			fmt.Fprintln(out, "\nGoodbye!")
			return scanner.Err()
		}
		if !handleLine(ctx, out, p, env, st, scanner.Text()) {
			return nil
		}
	}
}

// handleLine runs one turn. It returns false when the user asked to quit.
func handleLine(ctx context.Context, out io.Writer, p *agent.Pipeline, env *internal.Env, st *thread.ThreadState, line string) bool {
	input := strings.TrimSpace(line)
	switch input {
	case "":
		return true
	case "exit", "quit":
		fmt.Fprintln(out, "Goodbye!")
		return false
	}

	st.AppendUser(input)
	res := p.Run(ctx, st)
	printFlags(out, st.Metadata().InputHandler)

	if res.Decision.Type != agent.DecisionNext {
		fmt.Fprintf(out, "Error: %s\n\n", res.Decision.Reason)
	} else if msgs := st.Messages(); len(msgs) > 0 && msgs[len(msgs)-1].Role == thread.RoleAssistant {
		fmt.Fprintf(out, "\n%s %s\n\n", internal.Logo, msgs[len(msgs)-1].Content)
	}

	if err := env.Threads.Save(st.ID()); err != nil {
		fmt.Fprintf(out, "Warning: thread not saved: %v\n", err)
	}
	return true
}

func printFlags(out io.Writer, diag thread.InputDiagnostics) {
	var flags []string
	if diag.InjectionDetected {
		flags = append(flags, "injection:"+strings.Join(diag.InjectionPatterns, ","))
	}
	if diag.RateLimited {
		flags = append(flags, "rate-limited")
	}
	if diag.SpamDetected {
		flags = append(flags, "spam")
	}
	if diag.SanitizeSkippedEmpty {
		flags = append(flags, "invisible-only")
	}
	if diag.RepetitionDetected {
		flags = append(flags, "repetition")
	}
	if diag.SummaryServiceTriggered {
		flags = append(flags, "summarizing")
	}
	if diag.BackgroundTrimmingTriggered {
		flags = append(flags, "trimming")
	}
	if diag.DroppedMessages > 0 {
		flags = append(flags, fmt.Sprintf("dropped:%d", diag.DroppedMessages))
	}
	if len(flags) == 0 {
		return
	}
	fmt.Fprintf(out, "[%s] tokens %d/%d\n", strings.Join(flags, " "), diag.TokensAfter, diag.TokensBefore)
}
