package main

import (
	"context"
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"go-catfood-scanner/internal/container"
	"go-catfood-scanner/internal/repository"
	"go-catfood-scanner/pkg/models"

	"github.com/spf13/cobra"
)

var (
	searchLimit int
	searchJSON  bool

	itemName    string
	itemBrand   string
	itemBarcode string
	itemOwner   string
)

var catalogueCmd = &cobra.Command{
	Use:   "catalogue",
	Short: "Inspect and populate the catalogue",
}

var catalogueSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search catalogue items by name, brand or barcode",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		items, err := store.SearchItems(cmd.Context(), args[0], searchLimit)
		if err != nil {
			return err
		}
		if searchJSON {
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(items)
		}
		if len(items) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No items found")
			return nil
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "ID\tNAME\tBRAND\tBARCODE")
		for _, item := range items {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", item.ID, item.Name, item.Brand, item.Barcode)
		}
		return w.Flush()
	},
}

var catalogueAddItemCmd = &cobra.Command{
	Use:   "add-item",
	Short: "Add a catalogue item",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := openStore(cmd)
		if err != nil {
			return err
		}
		defer store.Close()

		item, err := store.CreateItem(cmd.Context(), models.CatalogueItem{
			Name:    itemName,
			Brand:   itemBrand,
			Barcode: itemBarcode,
			OwnerID: itemOwner,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), item.ID)
		return nil
	},
}

var catalogueAddIngredientCmd = &cobra.Command{
	Use:   "add-ingredient <name>...",
	Short: "Register ingredient names",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return addNames(cmd, args, (*repository.Store).AddIngredient)
	},
}

var catalogueAddAdditiveCmd = &cobra.Command{
	Use:   "add-additive <name>...",
	Short: "Register additive names",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return addNames(cmd, args, (*repository.Store).AddAdditive)
	},
}

func init() {
	catalogueSearchCmd.Flags().IntVar(&searchLimit, "limit", 20, "maximum number of results")
	catalogueSearchCmd.Flags().BoolVar(&searchJSON, "json", false, "print results as JSON")

	catalogueAddItemCmd.Flags().StringVar(&itemName, "name", "", "item name (required)")
	catalogueAddItemCmd.Flags().StringVar(&itemBrand, "brand", "", "brand")
	catalogueAddItemCmd.Flags().StringVar(&itemBarcode, "barcode", "", "barcode printed on the package")
	catalogueAddItemCmd.Flags().StringVar(&itemOwner, "owner", "", "user id owning the item's data")
	catalogueAddItemCmd.MarkFlagRequired("name")

	catalogueCmd.AddCommand(catalogueSearchCmd, catalogueAddItemCmd, catalogueAddIngredientCmd, catalogueAddAdditiveCmd)
}

func openStore(cmd *cobra.Command) (*repository.Store, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	return container.OpenStore(cmd.Context(), cfg)
}

type addFunc func(s *repository.Store, ctx context.Context, name string) (string, error)

func addNames(cmd *cobra.Command, names []string, add addFunc) error {
	store, err := openStore(cmd)
	if err != nil {
		return err
	}
	defer store.Close()

	for _, name := range names {
		id, err := add(store, cmd.Context(), name)
		if err != nil {
			return fmt.Errorf("adding %q: %w", name, err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s\t%s\n", id, name)
	}
	return nil
}
