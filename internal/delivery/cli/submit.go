package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"order_form/config"
	"order_form/internal/domain"
	"order_form/internal/repository"
	"order_form/internal/usecase"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// OrderFile is an order written by hand, filled into the form row by row.
type OrderFile struct {
	Customer string          `yaml:"customer"`
	Items    []OrderFileItem `yaml:"items"`
}

type OrderFileItem struct {
	Product  string `yaml:"product"`
	Quantity int    `yaml:"quantity"`
}

func ParseOrderFile(r io.Reader) (*OrderFile, error) {
	var f OrderFile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parsing order file: %w", err)
	}
	if len(f.Items) == 0 {
		return nil, fmt.Errorf("order file has no items")
	}
	return &f, nil
}

// FillForm enters every item of f into form the way a user would: the first
// item goes into the initial row, each further item into a new row.
func FillForm(ctx context.Context, form *usecase.OrderForm, f *OrderFile, logger *logrus.Logger) error {
	for i, item := range f.Items {
		var slot int
		if rows := form.Rows(); i == 0 && len(rows) > 0 {
			slot = rows[0].Slot
		} else {
			slot = form.AddRow().Slot
		}

		if _, err := form.SelectProduct(ctx, slot, domain.ID(item.Product)); err != nil {
			var priceErr *domain.PriceLoadError
			if !errors.As(err, &priceErr) {
				return fmt.Errorf("item %d: %w", i+1, err)
			}
			logger.Warnf("Item %d: %v", i+1, err)
		}
		quantity := item.Quantity
		if quantity == 0 {
			quantity = 1
		}
		if _, err := form.SetQuantity(slot, quantity); err != nil {
			return fmt.Errorf("item %d: %w", i+1, err)
		}
	}
	return nil
}

func newSubmitCmd() *cobra.Command {
	var (
		file   string
		dryRun bool
	)

	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Fill the order form from a YAML file and submit it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := setupLogger("info", false)
			cfg, err := config.LoadConfig(logger)
			if err != nil {
				return err
			}
			if level, err := logrus.ParseLevel(cfg.LogLevel); err == nil {
				logger.SetLevel(level)
			}

			in, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("opening order file: %w", err)
			}
			defer in.Close()
			orderFile, err := ParseOrderFile(in)
			if err != nil {
				return err
			}

			client, err := newBackendClient(cfg, logger)
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			if err := client.Bootstrap(ctx); err != nil {
				return fmt.Errorf("loading order page: %w", err)
			}
			form, err := usecase.NewOrderForm(ctx, uuid.NewString(), client, repository.NewNoopSubmissionRepository(), logger)
			if err != nil {
				return err
			}
			if err := FillForm(ctx, form, orderFile, logger); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if dryRun {
				return renderDryRun(out, form, domain.ID(orderFile.Customer))
			}

			outcome, err := form.Submit(ctx, domain.ID(orderFile.Customer))
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "order created (%s), continue at %s\n", outcome.Status, outcome.Redirect)
			return nil
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "YAML order file")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Print the payload and line totals without submitting")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}

func renderDryRun(w io.Writer, form *usecase.OrderForm, customer domain.ID) error {
	draft, err := form.Draft(customer)
	if err != nil {
		return err
	}
	for _, row := range form.Rows() {
		fmt.Fprintf(w, "row %d: product %s x %d = %s\n", row.Slot, row.ProductID, row.Quantity, row.DisplayTotal())
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(draft)
}
