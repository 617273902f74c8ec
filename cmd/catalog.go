package cmd

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"github.com/weprixetechnologies/cly-user-sub000/client"
	"github.com/weprixetechnologies/cly-user-sub000/db"
	"github.com/weprixetechnologies/cly-user-sub000/pkg/clierr"
	"github.com/weprixetechnologies/cly-user-sub000/pkg/pool"
	"github.com/weprixetechnologies/cly-user-sub000/pkg/validation"
)

func categoriesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "categories",
		Short: "List product categories",
		RunE: func(cmd *cobra.Command, args []string) error {
			cats, err := current.api.Categories(cmd.Context())
			if err != nil {
				return err
			}
			if len(cats) == 0 {
				cmd.Println("No categories found.")
				return nil
			}
			table := newTable(cmd.OutOrStdout(), "ID", "Name", "Slug")
			for _, c := range cats {
				table.Append([]string{c.ID, c.Name, c.Slug})
			}
			table.Render()
			return nil
		},
	}
}

func productsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "products",
		Short: "Browse products on the storefront",
	}
	cmd.AddCommand(productsListCmd(), productsShowCmd())
	return cmd
}

func productsListCmd() *cobra.Command {
	var q client.ProductQuery

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List one page of products",
		RunE: func(cmd *cobra.Command, args []string) error {
			if q.Page < 1 || q.Limit < 1 {
				return clierr.New(clierr.Validation, "page and limit must be at least 1", nil)
			}
			page, err := current.api.Products(cmd.Context(), q)
			if err != nil {
				return err
			}
			if len(page.Products) == 0 {
				cmd.Println("No products found.")
				return nil
			}
			renderProducts(cmd, page.Products)
			cmd.Printf("Page %d, showing %d of %d products.\n", page.Page, len(page.Products), page.Total)
			return nil
		},
	}

	cmd.Flags().IntVarP(&q.Page, "page", "p", 1, "Page number")
	cmd.Flags().IntVarP(&q.Limit, "limit", "l", client.DefaultPageSize, "Products per page")
	cmd.Flags().StringVarP(&q.CategoryID, "category", "c", "", "Only products of this category ID")
	cmd.Flags().StringVarP(&q.Search, "search", "s", "", "Search term")
	return cmd
}

func renderProducts(cmd *cobra.Command, products []client.Product) {
	table := newTable(cmd.OutOrStdout(), "ID", "Name", "Price", "Stock")
	table.SetColMinWidth(1, 40)
	for _, p := range products {
		table.Append([]string{p.ID, oneLine(p.Name), formatPrice(p.EffectivePrice()), strconv.Itoa(p.Stock)})
	}
	table.Render()
}

func productsShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <product-id>",
		Short: "Show details of a product",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := current.api.Product(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			printProduct(cmd, p)
			return nil
		},
	}
}

func printProduct(cmd *cobra.Command, p *client.Product) {
	cmd.Println("Product Information:")
	cmd.Printf("ID: %s\n", p.ID)
	cmd.Printf("Name: %s\n", p.Name)
	cmd.Printf("Price: %s\n", formatPrice(p.Price))
	if p.EffectivePrice() != p.Price {
		cmd.Printf("Sale price: %s\n", formatPrice(p.SalePrice))
	}
	cmd.Printf("Stock: %d\n", p.Stock)
	cmd.Printf("Category: %s\n", p.CategoryID)
	if p.Description != "" {
		cmd.Printf("Description: %s\n", oneLine(p.Description))
	}
}

// catalogCmd manages the local product cache.
func catalogCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Manage the local product catalog cache",
	}
	cmd.AddCommand(
		catalogSyncCmd(),
		catalogListCmd(),
		catalogSearchCmd(),
		catalogExportCmd(),
	)
	return cmd
}

func catalogSyncCmd() *cobra.Command {
	var numThreads int

	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Download categories and product details into the local cache",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateThreadCount(numThreads); err != nil {
				return invalid(err)
			}
			return syncCatalog(cmd, numThreads)
		},
	}

	cmd.Flags().IntVarP(&numThreads, "threads", "t", 5, "Number of workers fetching product details")
	return cmd
}

func syncCatalog(cmd *cobra.Command, numThreads int) error {
	ctx := cmd.Context()
	log.Info().Msg("Refreshing the product catalog...")

	cats, err := current.api.Categories(ctx)
	if err != nil {
		return err
	}
	listed, err := current.api.AllProducts(ctx, client.ProductQuery{}, nil)
	if err != nil {
		return err
	}
	if len(listed) == 0 {
		cmd.Println("The storefront has no products.")
		return current.catalog.Replace(ctx, toCachedCategories(cats), nil)
	}

	bar := progressbar.NewOptions(len(listed),
		progressbar.OptionSetWriter(cmd.ErrOrStderr()),
		progressbar.OptionSetDescription("Syncing catalog..."),
		progressbar.OptionSetWidth(20),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionClearOnFinish(),
	)

	now := time.Now()
	cached, errs := pool.Map(ctx, listed, numThreads, func(ctx context.Context, p client.Product) (db.Product, error) {
		defer func() { _ = bar.Add(1) }()
		detail, err := current.api.Product(ctx, p.ID)
		if err != nil {
			log.Warn().Err(err).Str("product_id", p.ID).Msg("Failed to fetch product details, keeping listing data")
			detail = &p
		}
		return toCachedProduct(*detail, now)
	})
	_ = bar.Finish()
	for _, err := range errs {
		log.Error().Err(err).Msg("Failed to cache product")
	}

	products := make([]db.Product, 0, len(cached))
	for _, p := range cached {
		if p.ID != "" {
			products = append(products, p)
		}
	}
	if err := current.catalog.Replace(ctx, toCachedCategories(cats), products); err != nil {
		return fmt.Errorf("failed to save catalog: %w", err)
	}
	cmd.Printf("Catalog synced: %d categories, %d products.\n", len(cats), len(products))
	return nil
}

func toCachedCategories(cats []client.Category) []db.Category {
	out := make([]db.Category, 0, len(cats))
	for _, c := range cats {
		out = append(out, db.Category{ID: c.ID, Name: c.Name, Slug: c.Slug})
	}
	return out
}

func toCachedProduct(p client.Product, syncedAt time.Time) (db.Product, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return db.Product{}, fmt.Errorf("failed to encode product %s: %w", p.ID, err)
	}
	return db.Product{
		ID:         p.ID,
		Name:       p.Name,
		CategoryID: p.CategoryID,
		Price:      p.EffectivePrice(),
		Data:       string(raw),
		SyncedAt:   syncedAt,
	}, nil
}

func catalogListCmd() *cobra.Command {
	var categoryID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List cached products",
		RunE: func(cmd *cobra.Command, args []string) error {
			products, err := current.catalog.ListProducts(cmd.Context(), categoryID)
			if err != nil {
				return err
			}
			if len(products) == 0 {
				cmd.Println("No products in the local catalog. Use `cly catalog sync` to update it.")
				return nil
			}
			renderCached(cmd, products)
			return nil
		},
	}

	cmd.Flags().StringVarP(&categoryID, "category", "c", "", "Only products of this category ID")
	return cmd
}

func catalogSearchCmd() *cobra.Command {
	var productID, term string

	cmd := &cobra.Command{
		Use:   "search",
		Short: "Search cached products by ID or name",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (productID == "") == (term == "") {
				return clierr.New(clierr.Validation, "exactly one of --id or --term is required", nil)
			}
			ctx := cmd.Context()
			var products []db.Product
			if productID != "" {
				p, err := current.catalog.GetProduct(ctx, productID)
				if err != nil {
					return err
				}
				if p != nil {
					products = append(products, *p)
				}
			} else {
				var err error
				if products, err = current.catalog.SearchProducts(ctx, term); err != nil {
					return err
				}
			}
			if len(products) == 0 {
				cmd.Println("No product(s) found matching the search criteria.")
				return nil
			}
			renderCached(cmd, products)
			return nil
		},
	}

	cmd.Flags().StringVarP(&productID, "id", "i", "", "ID of the product")
	cmd.Flags().StringVarP(&term, "term", "t", "", "Case-insensitive partial match against product names")
	return cmd
}

func renderCached(cmd *cobra.Command, products []db.Product) {
	table := newTable(cmd.OutOrStdout(), "Row", "ID", "Name", "Price")
	table.SetColMinWidth(2, 40)
	for i, p := range products {
		table.Append([]string{strconv.Itoa(i + 1), p.ID, oneLine(p.Name), formatPrice(p.Price)})
	}
	table.Render()
}

// catalogExportCmd writes the cached catalog to a JSON or CSV file.
func catalogExportCmd() *cobra.Command {
	var dir, format string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the local catalog to a file",
		RunE: func(cmd *cobra.Command, args []string) error {
			format = strings.ToLower(format)
			if format != "json" && format != "csv" {
				return clierr.New(clierr.Validation, "invalid export format; supported formats: json, csv", nil)
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return fmt.Errorf("failed to create export directory: %w", err)
			}
			products, err := current.catalog.ListProducts(cmd.Context(), "")
			if err != nil {
				return err
			}
			path := filepath.Join(dir, fmt.Sprintf("cly_catalog_%s.%s", time.Now().Format("20060102_150405"), format))
			if err := exportProducts(path, format, products); err != nil {
				return err
			}
			cmd.Printf("Exported %d products to %s\n", len(products), path)
			return nil
		},
	}

	cmd.Flags().StringVarP(&dir, "dir", "d", ".", "Directory to write the export to")
	cmd.Flags().StringVarP(&format, "format", "f", "json", "Export format: json or csv")
	return cmd
}

func exportProducts(path, format string, products []db.Product) error {
	file, err := os.Create(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to create export file")
		return err
	}
	defer file.Close()

	if format == "json" {
		return json.NewEncoder(file).Encode(products)
	}
	w := csv.NewWriter(file)
	if err := w.Write([]string{"id", "name", "category_id", "price"}); err != nil {
		return err
	}
	for _, p := range products {
		if err := w.Write([]string{p.ID, p.Name, p.CategoryID, strconv.FormatFloat(p.Price, 'f', 2, 64)}); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}
