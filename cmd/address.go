package cmd

import (
	"errors"

	"github.com/spf13/cobra"
	"github.com/weprixetechnologies/cly-user-sub000/client"
	"github.com/weprixetechnologies/cly-user-sub000/pkg/validation"
)

func addressCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "address",
		Aliases: []string{"addresses"},
		Short:   "Manage shipping addresses",
	}
	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List saved addresses",
			RunE: func(cmd *cobra.Command, args []string) error {
				addrs, err := current.api.Addresses(cmd.Context())
				if err != nil {
					return err
				}
				renderAddresses(cmd, addrs)
				return nil
			},
		},
		addressAddCmd(),
		&cobra.Command{
			Use:   "remove <address-id>",
			Short: "Delete an address",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				if err := current.api.DeleteAddress(cmd.Context(), args[0]); err != nil {
					return err
				}
				cmd.Println("Address removed.")
				return nil
			},
		},
		&cobra.Command{
			Use:   "default <address-id>",
			Short: "Make an address the default",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				addr, err := current.api.SetDefaultAddress(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				cmd.Printf("Default address is now %s.\n", valueOr(addr.ID, args[0]))
				return nil
			},
		},
	)
	return cmd
}

func addressAddCmd() *cobra.Command {
	var in client.AddressInput
	cmd := &cobra.Command{
		Use:   "add",
		Short: "Save a new address",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := validateAddress(in); err != nil {
				return invalid(err)
			}
			addr, err := current.api.AddAddress(cmd.Context(), in)
			if err != nil {
				return err
			}
			cmd.Printf("Address %s saved.\n", addr.ID)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&in.Name, "name", "", "Recipient name")
	f.StringVar(&in.Phone, "phone", "", "10-digit phone number")
	f.StringVar(&in.Line1, "line1", "", "Address line 1")
	f.StringVar(&in.Line2, "line2", "", "Address line 2")
	f.StringVar(&in.City, "city", "", "City")
	f.StringVar(&in.State, "state", "", "State")
	f.StringVar(&in.Pincode, "pincode", "", "6-digit postal code")
	f.BoolVar(&in.IsDefault, "default", false, "Make this the default address")
	return cmd
}

func validateAddress(in client.AddressInput) error {
	return errors.Join(
		validation.ValidateNonEmptyString("name", in.Name),
		validation.ValidatePhone(in.Phone),
		validation.ValidateNonEmptyString("line1", in.Line1),
		validation.ValidateNonEmptyString("city", in.City),
		validation.ValidateNonEmptyString("state", in.State),
		validation.ValidatePincode(in.Pincode),
	)
}

func renderAddresses(cmd *cobra.Command, addrs []client.Address) {
	if len(addrs) == 0 {
		cmd.Println("No saved addresses. Use `cly address add` to create one.")
		return
	}
	table := newTable(cmd.OutOrStdout(), "ID", "Name", "Address", "Pincode", "Default")
	for _, a := range addrs {
		line := a.Line1
		if a.Line2 != "" {
			line += ", " + a.Line2
		}
		def := ""
		if a.IsDefault {
			def = "yes"
		}
		table.Append([]string{a.ID, a.Name, oneLine(line + ", " + a.City + ", " + a.State), a.Pincode, def})
	}
	table.Render()
}
