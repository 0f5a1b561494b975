package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/tailored-agentic-units/tradedesk/kernel"
)

// script is the default conversation: a price question, then a purchase
// that needs approval.
var script = []string{
	"what is the current price of 10 AAPL?",
	"buy 20 AAPL stock at current price.",
}

// conversation is the subset of *kernel.Kernel the CLI drives.
type conversation interface {
	SendMessage(ctx context.Context, sessionID, text string) (*kernel.Result, error)
	Resume(ctx context.Context, sessionID, decision string) (*kernel.Result, error)
}

// converse sends each message in turn. Suspended runs are put to the user on
// out and resumed with the line read from in.
func converse(ctx context.Context, k conversation, sessionID string, messages []string, in io.Reader, out io.Writer) error {
	reader := bufio.NewReader(in)

	for _, text := range messages {
		result, err := k.SendMessage(ctx, sessionID, text)
		if err != nil {
			return err
		}

		for result.State == kernel.StateSuspended {
			fmt.Fprintln(out, result.Prompt)
			fmt.Fprint(out, "Approve (yes/no): ")

			decision, err := reader.ReadString('\n')
			if err != nil && err != io.EOF {
				return fmt.Errorf("read decision: %w", err)
			}

			result, err = k.Resume(ctx, sessionID, strings.TrimSpace(decision))
			if err != nil {
				return err
			}
		}

		fmt.Fprintln(out, result.Response)
	}
	return nil
}
