package analyzers

import (
	"context"
	"fmt"

	"github.com/xkilldash9x/codesmith/api/schemas"
)

// Black wraps the black code formatter. Source is piped through stdin.
type Black struct {
	cmd Command
}

var _ schemas.Formatter = (*Black)(nil)

// NewBlack creates the formatter adapter.
func NewBlack(cmd Command) *Black {
	return &Black{cmd: cmd}
}

func (b *Black) Name() string { return "black" }

// Check runs `black --check`. Exit code 0 means formatted, 1 means the file
// would be reformatted; anything else (123: unparsable source) is an error.
func (b *Black) Check(ctx context.Context, source string) (bool, bool, error) {
	res, err := b.cmd.run(ctx, nil, []string{"--check", "--quiet", "-"}, source)
	if err != nil {
		return false, false, err
	}
	switch res.ExitCode {
	case 0:
		return true, true, nil
	case 1:
		return false, true, nil
	default:
		return false, true, fmt.Errorf("black --check exited with status %d: %s", res.ExitCode, firstLine(res.Stderr))
	}
}

// Fix returns the source as black would write it.
func (b *Black) Fix(ctx context.Context, source string) (string, error) {
	res, err := b.cmd.run(ctx, nil, []string{"--quiet", "-"}, source)
	if err != nil {
		return "", err
	}
	if res.ExitCode != 0 {
		return "", fmt.Errorf("black exited with status %d: %s", res.ExitCode, firstLine(res.Stderr))
	}
	return string(res.Stdout), nil
}
