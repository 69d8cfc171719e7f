package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/url"
	"path/filepath"
	"strings"

	"go-catfood-scanner/internal/camera"
	"go-catfood-scanner/internal/capture"
	"go-catfood-scanner/internal/config"
	"go-catfood-scanner/internal/container"
	"go-catfood-scanner/internal/factory"
	"go-catfood-scanner/internal/flow"
	"go-catfood-scanner/internal/logger"
	"go-catfood-scanner/internal/observer"
	"go-catfood-scanner/internal/ocr"
	"go-catfood-scanner/internal/ocr/tesseract"
	"go-catfood-scanner/pkg/models"
	"go-catfood-scanner/pkg/validation"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	runItemID string
	runUser   string
)

var runCmd = &cobra.Command{
	Use:   "run <photo path or URL>",
	Short: "Recognize a label photo and generate a report",
	Long: `run drives one capture through recognition and report generation.

Without --item the direct-additive journey is used and nothing is saved.
With --item the report and its ingredient and additive links are saved
against that catalogue item on behalf of --user.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		handle, err := sourceHandle(args[0])
		if err != nil {
			return err
		}
		if err := validation.NewHandleValidator().ValidateHandle(handle); err != nil {
			return err
		}
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		return runPipeline(cmd.Context(), cmd.OutOrStdout(), cmd.ErrOrStderr(), cfg, handle)
	},
}

func init() {
	runCmd.Flags().StringVar(&runItemID, "item", "", "catalogue item to save the report against")
	runCmd.Flags().StringVar(&runUser, "user", "", "user id the report is saved as")
}

// runResult is what run prints
type runResult struct {
	Flow    flow.Session     `json:"flow"`
	Capture capture.Snapshot `json:"capture"`
	Notices []models.Notice  `json:"notices,omitempty"`
}

func runPipeline(ctx context.Context, out, errOut io.Writer, cfg *config.Config, handle string) error {
	store, err := container.OpenStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer store.Close()

	photos, err := factory.NewStorageFactory(cfg).CreateStorage(ctx, factory.StorageType(cfg.PhotoStore))
	if err != nil {
		return fmt.Errorf("failed to create photo store: %w", err)
	}
	recognizer, err := ocr.NewService(photos, tesseract.New, container.OCROptions(cfg))
	if err != nil {
		return fmt.Errorf("failed to start OCR: %w", err)
	}
	defer recognizer.Close()

	model, generator := container.NewReportGenerator(ctx, cfg)
	if model != nil {
		defer model.Close()
	}

	runID := uuid.NewString()
	publisher := observer.NewEventPublisher()
	publisher.Subscribe(observer.NewLoggingObserver(logger.Logger))
	events := observer.NewScoped(publisher, runID)

	cam := camera.NewFileCamera(handle, photos)
	controller := flow.NewController(cam, events)
	notices := &noticePrinter{w: errOut}

	user := runUser
	if user == "" {
		user = "cli"
	}
	writer := store.As(user)
	orchestrator := capture.NewOrchestrator(capture.Dependencies{
		Camera:       cam,
		Recognizer:   recognizer,
		Reports:      generator,
		Saver:        writer,
		Associations: writer,
		Flow:         controller,
		Notifier:     notices,
		Events:       events,
	}, container.CaptureOptions(cfg).WithMinDisplay(0))

	log := logger.WithFields(logrus.Fields{"run_id": runID, "source": handle})

	controller.StartScan()
	var item *models.CatalogueItem
	if runItemID != "" {
		item, err = store.GetItem(ctx, runItemID)
		if err != nil {
			return err
		}
		controller.SelectMode(models.ScanModeKnownItem)
		controller.SelectCatalogueItem(item)
		cam.SetMode(models.CaptureModePhoto)
		controller.TransitionTo(flow.StateTakingPhoto)
	} else {
		controller.SelectMode(models.ScanModeDirectAdditive)
	}

	log.Info("Capturing label photo")
	if err := orchestrator.CapturePhoto(ctx, nil, nil); err != nil {
		return err
	}
	if err := orchestrator.ConfirmPhoto(ctx); err != nil {
		return err
	}
	if err := orchestrator.GenerateReport(ctx, item); err != nil {
		return err
	}

	result := runResult{
		Flow:    controller.Snapshot(),
		Capture: orchestrator.Snapshot(),
		Notices: notices.notices,
	}
	orchestrator.CloseResultOverlay()

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(result)
}

// sourceHandle turns a local path into a file handle; URLs pass through
func sourceHandle(arg string) (string, error) {
	arg = strings.TrimSpace(arg)
	if arg == "" {
		return "", errors.New("photo source is required")
	}
	if strings.Contains(arg, "://") {
		return arg, nil
	}
	path, err := filepath.Abs(arg)
	if err != nil {
		return "", fmt.Errorf("resolving %s: %w", arg, err)
	}
	return (&url.URL{Scheme: "file", Path: filepath.ToSlash(path)}).String(), nil
}

// noticePrinter writes notices as they are raised and keeps them for the result
type noticePrinter struct {
	w       io.Writer
	notices []models.Notice
}

func (p *noticePrinter) Notify(ctx context.Context, notice models.Notice) {
	p.notices = append(p.notices, notice)
	fmt.Fprintf(p.w, "[%s] %s: %s\n", notice.Kind, notice.Title, notice.Message)
}
