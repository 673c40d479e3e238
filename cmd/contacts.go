package main

import (
	"fmt"
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"

	"github.com/sells-group/leadsync/internal/model"
)

var contactsCmd = &cobra.Command{
	Use:   "contacts",
	Short: "Manage CRM contacts",
}

var contactsAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Create a contact",
	Long:  "Creates a contact record. When --owner is omitted the contact is assigned to the invoking user.",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx := cmd.Context()

		name, _ := cmd.Flags().GetString("name")
		email, _ := cmd.Flags().GetString("email")
		phone, _ := cmd.Flags().GetString("phone")
		owner, _ := cmd.Flags().GetString("owner")
		as, _ := cmd.Flags().GetString("as")

		st, err := openStore(ctx)
		if err != nil {
			return err
		}
		defer st.Close() //nolint:errcheck

		contact := model.Contact{
			Name:  name,
			Email: model.StringPtr(email),
			Phone: model.StringPtr(phone),
			Owner: model.StringPtr(owner),
		}

		if as == "" {
			as = principal()
		}

		id, err := st.CreateContact(ctx, contact, as)
		if err != nil {
			return eris.Wrap(err, "create contact")
		}

		fmt.Println(id)
		return nil
	},
}

// principal identifies the invoking user for ownership defaults.
func principal() string {
	if u := os.Getenv("USER"); u != "" {
		return u
	}
	return "system"
}

func init() {
	contactsAddCmd.Flags().String("name", "", "contact name (required)")
	contactsAddCmd.Flags().String("email", "", "contact email")
	contactsAddCmd.Flags().String("phone", "", "contact phone")
	contactsAddCmd.Flags().String("owner", "", "owning user (default: acting principal)")
	contactsAddCmd.Flags().String("as", "", "acting principal (default: invoking user)")
	_ = contactsAddCmd.MarkFlagRequired("name")

	contactsCmd.AddCommand(contactsAddCmd)
	rootCmd.AddCommand(contactsCmd)
}
