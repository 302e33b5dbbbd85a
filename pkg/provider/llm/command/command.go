// Package command implements [llm.Responder] as a subprocess call: the
// configured command is executed with the prompt appended as its final
// argument, and its stdout is the response. This suits local wrappers around
// CLI inference tools, or any script the operator trusts to turn a question
// into an answer.
package command

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/wakepal/wakepal/pkg/provider/llm"
)

// Responder implements [llm.Responder] by running a subprocess per prompt.
type Responder struct {
	argv []string
}

var _ llm.Responder = (*Responder)(nil)

// New creates a Responder from a command line split on whitespace, e.g.
// "ollama run llama3.2". The prompt is appended as one extra argument.
func New(commandLine string) (*Responder, error) {
	argv := strings.Fields(commandLine)
	if len(argv) == 0 {
		return nil, errors.New("command: command line must not be empty")
	}
	return &Responder{argv: argv}, nil
}

// Respond implements [llm.Responder]. The subprocess is killed when ctx
// expires; stderr is included in the error to aid debugging.
func (r *Responder) Respond(ctx context.Context, prompt string) (string, error) {
	args := make([]string, 0, len(r.argv))
	args = append(args, r.argv[1:]...)
	args = append(args, prompt)

	cmd := exec.CommandContext(ctx, r.argv[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		msg := strings.TrimSpace(stderr.String())
		if msg != "" {
			return "", fmt.Errorf("command: %s: %w (%s)", r.argv[0], err, msg)
		}
		return "", fmt.Errorf("command: %s: %w", r.argv[0], err)
	}
	return strings.TrimSpace(stdout.String()), nil
}
