package cli

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/qshape/qshape/internal/config"
	"github.com/qshape/qshape/internal/lastresults"
	"github.com/qshape/qshape/internal/notify"
	"github.com/qshape/qshape/internal/session"
	"github.com/qshape/qshape/internal/source"
)

// openService is replaced in tests.
var openService = func(c *config.Config) (source.Service, error) {
	return source.Open(c)
}

// newNotifier sends notifications to the terminal in text mode. JSON mode
// reports outcomes in the envelope instead.
func newNotifier(errOut io.Writer) notify.Notifier {
	if isJSONOutput() {
		return notify.Discard
	}
	return notify.NewTerminal(errOut)
}

// openSession connects to the configured source. The caller closes the
// returned service.
func openSession(cmd *cobra.Command) (*session.Session, source.Service, error) {
	c := getConfig()
	if err := c.Validate(); err != nil {
		return nil, nil, err
	}
	svc, err := openService(c)
	if err != nil {
		return nil, nil, err
	}
	slog.Debug("source opened", "kind", c.Source.Kind, "path", c.Source.Path)
	return session.New(svc, newNotifier(cmd.ErrOrStderr())), svc, nil
}

// restoreSession installs the last saved result set into a session that has
// no source behind it. Drilling into saved results needs no connection.
func restoreSession(cmd *cobra.Command) (*session.Session, *lastresults.LastResults, error) {
	lr, err := lastresults.Read(getStateDir())
	if err != nil {
		return nil, nil, err
	}
	sess := session.New(nil, newNotifier(cmd.ErrOrStderr()))
	if _, err := sess.Restore(lr.Query, lr.Records); err != nil {
		return nil, nil, err
	}
	return sess, lr, nil
}

// saveResults persists the session's current results for later commands.
func saveResults(st *session.State) {
	lr := lastresults.New(st.Query, getConfig().Source.Kind, st.Columns, st.Raw)
	if err := lastresults.Write(getStateDir(), lr); err != nil {
		slog.Warn("could not save last results", "error", err)
	}
}

// signalContext cancels on Ctrl-C so long exports stop between batches.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}

func noResultsError() error {
	return handleErrorMsg(ErrNoResults, "no query results available",
		"Run a query first with 'qshape run \"SELECT ...\"'")
}

func isNoResults(err error) bool {
	return errors.Is(err, lastresults.ErrNoLastResults)
}
