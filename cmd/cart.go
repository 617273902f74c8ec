package cmd

import (
	"strconv"

	"github.com/spf13/cobra"
	"github.com/weprixetechnologies/cly-user-sub000/client"
	"github.com/weprixetechnologies/cly-user-sub000/pkg/validation"
)

func cartCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cart",
		Short: "View and change your shopping cart",
		RunE:  func(cmd *cobra.Command, args []string) error { return showCart(cmd) },
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "show",
			Short: "Show the cart",
			RunE:  func(cmd *cobra.Command, args []string) error { return showCart(cmd) },
		},
		cartAddCmd(),
		cartUpdateCmd(),
		&cobra.Command{
			Use:   "remove <product-id>",
			Short: "Remove a product from the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				return printCartResult(cmd)(current.api.RemoveFromCart(cmd.Context(), args[0]))
			},
		},
		&cobra.Command{
			Use:   "apply-coupon <code>",
			Short: "Apply a coupon code to the cart",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := validation.ValidateNonEmptyString("coupon code", args[0]); err != nil {
					return invalid(err)
				}
				return printCartResult(cmd)(current.api.ApplyCoupon(cmd.Context(), args[0]))
			},
		},
		&cobra.Command{
			Use:   "remove-coupon",
			Short: "Remove the applied coupon",
			RunE: func(cmd *cobra.Command, args []string) error {
				return printCartResult(cmd)(current.api.RemoveCoupon(cmd.Context()))
			},
		},
	)
	return cmd
}

func cartAddCmd() *cobra.Command {
	var qty int
	cmd := &cobra.Command{
		Use:   "add <product-id>",
		Short: "Add a product to the cart",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateQuantity(qty); err != nil {
				return invalid(err)
			}
			return printCartResult(cmd)(current.api.AddToCart(cmd.Context(), args[0], qty))
		},
	}
	cmd.Flags().IntVarP(&qty, "quantity", "q", 1, "Quantity to add")
	return cmd
}

func cartUpdateCmd() *cobra.Command {
	var qty int
	cmd := &cobra.Command{
		Use:   "update <product-id>",
		Short: "Change the quantity of a cart item",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validation.ValidateQuantity(qty); err != nil {
				return invalid(err)
			}
			return printCartResult(cmd)(current.api.UpdateCartItem(cmd.Context(), args[0], qty))
		},
	}
	cmd.Flags().IntVarP(&qty, "quantity", "q", 1, "New quantity")
	_ = cmd.MarkFlagRequired("quantity")
	return cmd
}

func showCart(cmd *cobra.Command) error {
	return printCartResult(cmd)(current.api.Cart(cmd.Context()))
}

func printCartResult(cmd *cobra.Command) func(*client.Cart, error) error {
	return func(cart *client.Cart, err error) error {
		if err != nil {
			return err
		}
		renderCart(cmd, cart)
		return nil
	}
}

func renderCart(cmd *cobra.Command, cart *client.Cart) {
	if cart == nil || len(cart.Items) == 0 {
		cmd.Println("Your cart is empty.")
		return
	}
	table := newTable(cmd.OutOrStdout(), "Product ID", "Name", "Price", "Qty", "Amount")
	for _, it := range cart.Items {
		table.Append([]string{
			it.ProductID,
			oneLine(it.Name),
			formatPrice(it.Price),
			strconv.Itoa(it.Quantity),
			formatPrice(it.Price * float64(it.Quantity)),
		})
	}
	table.Render()
	cmd.Printf("Subtotal: %s\n", formatPrice(cart.Subtotal()))
	if cart.Coupon != nil {
		cmd.Printf("Coupon %s: -%s\n", cart.Coupon.Code, formatPrice(cart.Discount))
	}
	cmd.Printf("Total: %s\n", formatPrice(cart.Total()))
}
