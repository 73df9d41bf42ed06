package main

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"github.com/wa-marketing/backend/internal/models"
	"github.com/wa-marketing/backend/internal/services"
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Create, launch and inspect campaigns",
}

var (
	createType      string
	createSegment   string
	createTemplate  string
	createVariables string
	createAt        string
	createOwner     string
)

var campaignCreateCmd = &cobra.Command{
	Use:   "create <name>",
	Short: "Create a DRAFT or SCHEDULED campaign",
	Args:  cobra.ExactArgs(1),
	RunE:  runCampaignCreate,
}

var campaignLaunchCmd = &cobra.Command{
	Use:   "launch <campaign-id>",
	Short: "Queue every batch of a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: withCampaign(func(cmd *cobra.Command, svc *services.CampaignService, id uuid.UUID) (any, error) {
		return svc.Launch(cmd.Context(), id, nil)
	}),
}

var campaignCancelCmd = &cobra.Command{
	Use:   "cancel <campaign-id>",
	Short: "Pause a campaign and drop its queued batches",
	Args:  cobra.ExactArgs(1),
	RunE: withCampaign(func(cmd *cobra.Command, svc *services.CampaignService, id uuid.UUID) (any, error) {
		return svc.Cancel(cmd.Context(), id, nil)
	}),
}

var campaignStatsCmd = &cobra.Command{
	Use:   "stats <campaign-id>",
	Short: "Print counters and rates of a campaign",
	Args:  cobra.ExactArgs(1),
	RunE: withCampaign(func(cmd *cobra.Command, svc *services.CampaignService, id uuid.UUID) (any, error) {
		return svc.GetStats(cmd.Context(), id)
	}),
}

func init() {
	f := campaignCreateCmd.Flags()
	f.StringVar(&createType, "type", models.CampaignTypeBroadcast, "campaign type")
	f.StringVar(&createSegment, "segment", "", "target segment (empty targets every opted-in contact)")
	f.StringVar(&createTemplate, "template", "", "approved template id")
	f.StringVar(&createVariables, "vars", "", `template bindings as JSON, e.g. '{"var1":"prenom"}'`)
	f.StringVar(&createAt, "at", "", "schedule time, RFC3339")
	f.StringVar(&createOwner, "owner", "", "creator user id")
	_ = campaignCreateCmd.MarkFlagRequired("template")
	_ = campaignCreateCmd.MarkFlagRequired("owner")

	campaignCmd.AddCommand(campaignCreateCmd, campaignLaunchCmd, campaignCancelCmd, campaignStatsCmd)
}

func runCampaignCreate(cmd *cobra.Command, args []string) error {
	in := services.CreateCampaignInput{
		Name:    args[0],
		Type:    createType,
		Segment: createSegment,
	}

	var err error
	if in.TemplateID, err = uuid.Parse(createTemplate); err != nil {
		return fmt.Errorf("invalid template id: %w", err)
	}
	owner, err := uuid.Parse(createOwner)
	if err != nil {
		return fmt.Errorf("invalid owner id: %w", err)
	}
	if createVariables != "" {
		if err := json.Unmarshal([]byte(createVariables), &in.Variables); err != nil {
			return fmt.Errorf("invalid --vars: %w", err)
		}
	}
	if createAt != "" {
		at, err := time.Parse(time.RFC3339, createAt)
		if err != nil {
			return fmt.Errorf("invalid --at: %w", err)
		}
		in.ScheduledAt = &at
	}

	e, err := connect(cmd.Context())
	if err != nil {
		return err
	}
	defer e.Close()

	svc, err := e.campaignService()
	if err != nil {
		return err
	}
	c, err := svc.Create(cmd.Context(), in, owner)
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), c)
}

// withCampaign adapts an operation on one campaign id into a command body
// that prints its result as JSON.
func withCampaign(op func(*cobra.Command, *services.CampaignService, uuid.UUID) (any, error)) func(*cobra.Command, []string) error {
	return func(cmd *cobra.Command, args []string) error {
		id, err := uuid.Parse(args[0])
		if err != nil {
			return fmt.Errorf("invalid campaign id: %w", err)
		}

		e, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer e.Close()

		svc, err := e.campaignService()
		if err != nil {
			return err
		}
		out, err := op(cmd, svc, id)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), out)
	}
}
