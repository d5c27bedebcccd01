package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/joseph-ayodele/petfood-scanner/constants"
	"github.com/joseph-ayodele/petfood-scanner/internal/app"
	"github.com/joseph-ayodele/petfood-scanner/internal/common"
	"github.com/joseph-ayodele/petfood-scanner/internal/entity"
	"github.com/joseph-ayodele/petfood-scanner/internal/logger"
	"github.com/joseph-ayodele/petfood-scanner/internal/scan"
)

var scanCmd = &cobra.Command{
	Use:   "scan",
	Short: "Run a complete scan session from the command line",
	Long: `Drive one scan session end to end: a barcode is looked up, a label capture
fills in or replaces the product data, and the ingredients are assessed for
the selected pets. The finished scan is recorded in the scan history.

At least one of --barcode and --label is required.`,
	Example: `  petscan scan --barcode 0123456789012 --pet 3c1f...
  petscan scan --label back.jpg --pet 3c1f...
  petscan scan --barcode 0123456789012 --label back.txt --pet 3c1f... --json`,
	RunE: runScan,
}

func init() {
	rootCmd.AddCommand(scanCmd)
	f := scanCmd.Flags()
	f.String("barcode", "", "barcode read from the package")
	f.String("label", "", "label capture: a .txt file with recognized text or an image")
	f.StringArray("pet", nil, "stored pet id (repeatable); default: every stored pet")
	f.Duration("timeout", 2*time.Minute, "give up after this long")
	f.Bool("json", false, "print the outcome as JSON")
}

func runScan(cmd *cobra.Command, _ []string) error {
	f := cmd.Flags()
	barcode, _ := f.GetString("barcode")
	label, _ := f.GetString("label")
	petIDs, _ := f.GetStringArray("pet")
	timeout, _ := f.GetDuration("timeout")
	jsonOut, _ := f.GetBool("json")
	if barcode == "" && label == "" {
		return errors.New("give --barcode, --label or both")
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
	defer cancel()

	a, err := openApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	pets, err := selectPets(ctx, a, petIDs)
	if err != nil {
		return err
	}
	capture, err := loadCapture(label)
	if err != nil {
		return err
	}

	sess := scan.NewSession(ctx, a.Lookup, a.Recognizer, nil,
		scan.WithConfig(a.Config.Scan),
		scan.WithLogger(logger.WithComponent(a.Logger, "scan")),
	)
	defer sess.Close()

	out, err := driveScan(ctx, sess, barcode, capture, pets)
	if err != nil {
		return err
	}

	if p := out.Result.Product; p != nil && out.FinalState == scan.Completed && p.Nutrition.Source == constants.SourceUserUpload {
		saved, err := a.Products.Upsert(ctx, p)
		if err != nil {
			a.Logger.Warn("label product not saved", "error", err)
		} else {
			out.Result.Product = saved
		}
	}

	rec, err := out.Record()
	if err != nil {
		return err
	}
	if err := a.Scans.Record(ctx, rec); err != nil {
		a.Logger.Error("scan.record.failed", "session_id", out.SessionID, "error", err)
	}

	if jsonOut {
		return printJSON(cmd.OutOrStdout(), out)
	}
	printOutcome(cmd.OutOrStdout(), out)
	return nil
}

func selectPets(ctx context.Context, a *app.App, ids []string) ([]entity.PetProfile, error) {
	var pets []entity.PetProfile
	if len(ids) == 0 {
		all, err := a.Pets.ListPets(ctx)
		if err != nil {
			return nil, err
		}
		for _, p := range all {
			pets = append(pets, *p)
		}
	}
	for _, raw := range ids {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("pet %q: not a UUID", raw)
		}
		p, err := a.Pets.GetByID(ctx, id)
		if err != nil {
			return nil, err
		}
		pets = append(pets, *p)
	}
	if len(pets) == 0 {
		return nil, errors.New("no pets: add one with 'petscan pets add' or pass --pet")
	}
	return pets, nil
}

func loadCapture(path string) (*scan.Capture, error) {
	if path == "" {
		return nil, nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read label: %w", err)
	}
	switch constants.MapExtToFormat(filepath.Ext(path)) {
	case constants.TXT:
		return &scan.Capture{Text: string(b)}, nil
	case constants.IMAGE:
		if constants.IsHEIC(filepath.Ext(path)) {
			return nil, fmt.Errorf("HEIC captures are not supported; convert %q or use 'petscan parse'", filepath.Base(path))
		}
		return &scan.Capture{Image: b}, nil
	}
	return nil, fmt.Errorf("unsupported label file %q", filepath.Base(path))
}

// driveScan plays the user's part: it confirms what the session asks for and
// follows it to an outcome.
func driveScan(ctx context.Context, sess *scan.Session, barcode string, capture *scan.Capture, pets []entity.PetProfile) (scan.ScanOutcome, error) {
	if err := sess.Start(); err != nil {
		return scan.ScanOutcome{}, err
	}

	if barcode != "" {
		if err := sess.RequestLookup(barcode); err != nil {
			return scan.ScanOutcome{}, err
		}
		st, err := waitState(ctx, sess, scan.ProductFound, scan.ProductNotFound, scan.Failed)
		if err != nil || st == scan.Failed {
			return waitOutcome(ctx, sess, err)
		}
		if st == scan.ProductNotFound && capture == nil {
			return scan.ScanOutcome{}, fmt.Errorf("product %s not found; rerun with --label", barcode)
		}
	}

	if capture != nil {
		if err := sess.LabelScan(); err != nil {
			return scan.ScanOutcome{}, err
		}
		if err := sess.Capture(*capture); err != nil {
			return waitOutcome(ctx, sess, err)
		}
	} else if err := sess.Confirm(); err != nil {
		return scan.ScanOutcome{}, err
	}

	st, err := waitState(ctx, sess, scan.AwaitingPetSelection, scan.Failed)
	if err != nil || st == scan.Failed {
		return waitOutcome(ctx, sess, err)
	}
	if err := sess.SelectPets(pets...); err != nil {
		return scan.ScanOutcome{}, err
	}
	return waitOutcome(ctx, sess, nil)
}

// waitState consumes transitions until the session reaches one of want.
func waitState(ctx context.Context, sess *scan.Session, want ...scan.State) (scan.State, error) {
	for _, w := range want {
		if sess.State() == w {
			return w, nil
		}
	}
	for {
		select {
		case <-ctx.Done():
			return sess.State(), ctx.Err()
		case t, ok := <-sess.Updates():
			if !ok {
				return sess.State(), common.ErrSessionClosed
			}
			for _, w := range want {
				if t.To == w {
					return w, nil
				}
			}
		}
	}
}

func waitOutcome(ctx context.Context, sess *scan.Session, cause error) (scan.ScanOutcome, error) {
	if cause != nil && !errors.Is(cause, common.ErrCaptureInvalid) {
		return scan.ScanOutcome{}, cause
	}
	select {
	case <-ctx.Done():
		return scan.ScanOutcome{}, ctx.Err()
	case o, ok := <-sess.Outcome():
		if !ok {
			return scan.ScanOutcome{}, common.ErrSessionClosed
		}
		return o, nil
	}
}

func printOutcome(w io.Writer, o scan.ScanOutcome) {
	fmt.Fprintf(w, "Scan %s: %s", o.SessionID, o.FinalState)
	if o.Reason != scan.ReasonNone {
		fmt.Fprintf(w, " (%s)", o.Reason)
	}
	fmt.Fprintln(w)
	r := o.Result
	fmt.Fprintf(w, "Method: %s, confidence %.2f, took %s\n", r.Method, r.Confidence, r.ProcessingTime.Round(time.Millisecond))
	if p := r.Product; p != nil {
		name := p.Name
		if p.Brand != "" {
			name = p.Brand + " " + name
		}
		fmt.Fprintf(w, "Product: %s [%s]\n", name, p.Nutrition.Source)
		fmt.Fprintf(w, "Updated: %s\n", humanize.Time(p.Nutrition.LastUpdated))
		if len(p.Nutrition.Ingredients) > 0 {
			fmt.Fprintf(w, "Ingredients: %s\n", strings.Join(p.Nutrition.Ingredients, ", "))
		}
	}
	if o.Quality != nil {
		fmt.Fprintf(w, "Data quality: %.0f%%\n", o.Quality.Overall*100)
	}
	if len(o.Assessments) > 0 {
		fmt.Fprintln(w)
		printAssessments(w, o.Assessments)
	}
}
