package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/moesafa-mgf/genie-haus/internal/syncer"
)

func newWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Keep pulling the workspace and print the view when it changes",
		Long: "Select the workspace, then pull it every sync.pull_interval until\n" +
			"interrupted. The current grid's view is printed after every pull that\n" +
			"changed it; sync status changes go to the log.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) (err error) {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			s, err := openSession(cmd, syncer.TimerScheduler{}, true)
			if err != nil {
				return err
			}
			defer func() {
				if cerr := s.Close(cmd.Context()); err == nil {
					err = cerr
				}
			}()

			out := cmd.OutOrStdout()
			statuses := make(chan syncer.Status, 16)
			unsubscribe := s.sync.Subscribe(func(st syncer.Status) {
				select {
				case statuses <- st:
				default:
				}
			})
			defer unsubscribe()

			last := snapshotKey(s)
			if err := printGroups(out, s.ws, s.ws.View()); err != nil {
				return err
			}
			s.sync.Start(ctx)

			g, gctx := errgroup.WithContext(ctx)
			g.Go(func() error {
				for {
					select {
					case <-gctx.Done():
						return nil
					case st := <-statuses:
						if st == syncer.StatusError {
							s.log.Warn("sync failed", zap.Error(s.sync.LastError()))
							continue
						}
						s.log.Debug("sync status", zap.String("status", string(st)))
						if st != syncer.StatusOK {
							continue
						}
						if key := snapshotKey(s); key != last {
							last = key
							fmt.Fprintf(out, "\n--- %s ---\n", s.ws.CurrentGrid().Name)
							if err := printGroups(out, s.ws, s.ws.View()); err != nil {
								return err
							}
						}
					}
				}
			})
			return g.Wait()
		},
	}
}

// snapshotKey fingerprints the workspace document so unchanged pulls print
// nothing.
func snapshotKey(s *session) string {
	data, err := json.Marshal(s.ws.Snapshot())
	if err != nil {
		return ""
	}
	return string(data)
}
