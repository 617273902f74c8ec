package cmd

import (
	"strings"

	"github.com/spf13/cobra"
	"github.com/weprixetechnologies/cly-user-sub000/client"
	"github.com/weprixetechnologies/cly-user-sub000/pkg/validation"
)

func accountCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "account",
		Short: "Show your account profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			u, err := current.api.Profile(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("User ID: %s\n", u.UID)
			cmd.Printf("Name: %s\n", u.Name)
			cmd.Printf("Email: %s\n", u.Email)
			if u.Phone != "" {
				cmd.Printf("Phone: %s\n", u.Phone)
			}
			return nil
		},
	}
}

func faqCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "faq",
		Short: "Show frequently asked questions",
		RunE: func(cmd *cobra.Command, args []string) error {
			faqs, err := current.api.FAQs(cmd.Context())
			if err != nil {
				return err
			}
			if len(faqs) == 0 {
				cmd.Println("No FAQs published.")
				return nil
			}
			for i, f := range faqs {
				cmd.Printf("%d. %s\n   %s\n", i+1, oneLine(f.Question), oneLine(f.Answer))
			}
			return nil
		},
	}
}

func policyCmd() *cobra.Command {
	return &cobra.Command{
		Use:       "policy <" + strings.Join(validation.PolicyTypes, "|") + ">",
		Short:     "Show a store policy",
		Args:      cobra.ExactArgs(1),
		ValidArgs: validation.PolicyTypes,
		RunE: func(cmd *cobra.Command, args []string) error {
			policyType := strings.ToLower(args[0])
			if err := validation.ValidatePolicyType(policyType); err != nil {
				return invalid(err)
			}
			p, err := current.api.Policy(cmd.Context(), policyType)
			if err != nil {
				return err
			}
			cmd.Println(valueOr(p.Title, policyType))
			if !p.UpdatedAt.IsZero() {
				cmd.Printf("Last updated: %s\n", p.UpdatedAt.Format("2006-01-02"))
			}
			cmd.Println()
			cmd.Println(p.Content)
			return nil
		},
	}
}

func contactCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "contact",
		Short: "Show store contact details",
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := current.api.ActiveContact(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Printf("Email: %s\n", c.Email)
			cmd.Printf("Phone: %s\n", c.Phone)
			cmd.Printf("Address: %s\n", oneLine(c.Address))
			if c.Hours != "" {
				cmd.Printf("Hours: %s\n", c.Hours)
			}
			return nil
		},
	}
	cmd.AddCommand(contactSendCmd())
	return cmd
}

func contactSendCmd() *cobra.Command {
	var msg client.ContactMessage
	cmd := &cobra.Command{
		Use:   "send",
		Short: "Send a message to the store",
		RunE: func(cmd *cobra.Command, args []string) error {
			err := validation.ValidateNonEmptyString("name", msg.Name)
			if err == nil {
				err = validation.ValidateEmail(msg.Email)
			}
			if err == nil {
				err = validation.ValidateNonEmptyString("message", msg.Message)
			}
			if err != nil {
				return invalid(err)
			}
			if err := current.api.SendContactMessage(cmd.Context(), msg); err != nil {
				return err
			}
			cmd.Println("Message sent. We will get back to you soon.")
			return nil
		},
	}
	cmd.Flags().StringVar(&msg.Name, "name", "", "Your name")
	cmd.Flags().StringVar(&msg.Email, "email", "", "Your email")
	cmd.Flags().StringVar(&msg.Subject, "subject", "", "Subject")
	cmd.Flags().StringVarP(&msg.Message, "message", "m", "", "Message text")
	return cmd
}
