package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"jobmarket/internal/domain/listing"
	"jobmarket/internal/refdata"
	"jobmarket/internal/session"
)

var listingsCmd = &cobra.Command{
	Use:   "listings",
	Short: "Review and moderate listings",
}

var pendingCmd = &cobra.Command{
	Use:   "pending",
	Short: "Show listings waiting for moderation",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ls, err := application.Listings.ListByStatus(systemContext(cmd), listing.StatusPending, session.System().ID)
		if err != nil {
			return err
		}

		fmt.Println(titleStyle.Render(fmt.Sprintf("Pending listings (%d)", len(ls))))
		for _, l := range ls {
			printListing(l)
		}
		return nil
	},
}

func moderateCmd(use, short string, status listing.Status) *cobra.Command {
	return &cobra.Command{
		Use:   use + " <listing-id>",
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := application.Listings.SetModerationStatus(systemContext(cmd), args[0], status, session.System().ID); err != nil {
				return err
			}
			fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s is now %s", args[0], status)))
			return nil
		},
	}
}

var deactivateCmd = &cobra.Command{
	Use:   "deactivate <listing-id>",
	Short: "Take a listing out of the public feed",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := application.Listings.SetActive(systemContext(cmd), args[0], false, session.System().ID); err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("✓ %s deactivated", args[0])))
		return nil
	},
}

func printListing(l *listing.Listing) {
	city, _ := application.Ref.Label(refdata.City, l.CityID)
	fmt.Println(labelStyle.Render(l.ID))
	fmt.Printf("  %s %s\n", labelStyle.Render("Title:"), valueStyle.Render(l.Title))
	fmt.Printf("  %s %s\n", labelStyle.Render("Company:"), valueStyle.Render(l.Company))
	fmt.Printf("  %s %s %s\n", labelStyle.Render("Location:"), valueStyle.Render(city), valueStyle.Render(l.District))
	fmt.Printf("  %s %s\n", labelStyle.Render("Employer:"), valueStyle.Render(l.EmployerID))
	fmt.Printf("  %s %s\n\n", labelStyle.Render("Created:"), valueStyle.Render(l.CreatedAt.Format("2006-01-02 15:04")))
}

func init() {
	listingsCmd.AddCommand(
		pendingCmd,
		moderateCmd("approve", "Approve a listing", listing.StatusApproved),
		moderateCmd("reject", "Reject a listing", listing.StatusRejected),
		deactivateCmd,
	)
}
