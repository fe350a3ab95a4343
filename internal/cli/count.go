package cli

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"photo-counter/internal/domain/entity"
)

// count <sessionID> <photoPath>: проводит проверку фото без диалога и сохраняет итог.
func countCmd(st *state) *cobra.Command {
	var (
		auto  bool
		taps  string
		count string
	)
	cmd := &cobra.Command{
		Use:   "count <sessionID> <photoPath>",
		Short: "Count objects on a photo and add it to a session",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			wf, err := st.app.CountingService.Start(ctx, args[1], args[0])
			if err != nil {
				return err
			}

			switch {
			case auto:
				out, err := wf.SwitchToAutomatic(ctx)
				if err != nil {
					if entity.IsMissingCredential(err) {
						return errors.New("detector API key is not set: run `photo-counter settings set detectorApiKey <key>` or set DETECTOR_API_KEY")
					}
					return err
				}
				if out.NoObjects {
					return errors.New("no objects found, count manually with --taps or --count")
				}
			case taps != "":
				points, err := parseTaps(taps)
				if err != nil {
					return err
				}
				for _, p := range points {
					if _, err := wf.AddPoint(p[0], p[1]); err != nil {
						return err
					}
				}
			default:
				if err := wf.SetCountText(count); err != nil {
					return err
				}
			}

			img, err := wf.Commit(ctx)
			if err != nil {
				return err
			}
			session, _ := st.app.SessionService.GetSession(ctx, args[0])
			fmt.Fprintf(cmd.OutOrStdout(), "image %s: count=%d corrections=%d session total=%d\n", img.ID, img.Count, img.Corrections, session.TotalCount)
			return nil
		},
	}
	cmd.Flags().BoolVar(&auto, "auto", false, "ask the detector for the count")
	cmd.Flags().StringVar(&taps, "taps", "", "manual marks as x,y;x,y;...")
	cmd.Flags().StringVar(&count, "count", "", "typed count")
	cmd.MarkFlagsMutuallyExclusive("auto", "taps", "count")
	cmd.MarkFlagsOneRequired("auto", "taps", "count")
	return cmd
}

// parseTaps разбирает "x,y;x,y" в список точек.
func parseTaps(s string) ([][2]float64, error) {
	var points [][2]float64
	for _, pair := range strings.Split(s, ";") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		xs, ys, ok := strings.Cut(pair, ",")
		if !ok {
			return nil, fmt.Errorf("bad tap %q: want x,y", pair)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xs), 64)
		if err != nil {
			return nil, fmt.Errorf("bad tap %q: %w", pair, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(ys), 64)
		if err != nil {
			return nil, fmt.Errorf("bad tap %q: %w", pair, err)
		}
		points = append(points, [2]float64{x, y})
	}
	return points, nil
}
