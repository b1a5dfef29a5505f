package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"text/tabwriter"
	"time"

	"github.com/oncoregistry/internal/api/client"
	"github.com/oncoregistry/internal/models"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

func apiClient() *client.APIClient {
	return client.NewAPIClient(viper.GetString("server"))
}

func parseID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid ID: %v", err)
	}
	return uint(id), nil
}

func newLoginCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Login to the registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			username, _ := cmd.Flags().GetString("username")
			password, _ := cmd.Flags().GetString("password")

			token, err := apiClient().Login(username, password)
			if err != nil {
				return fmt.Errorf("login failed: %v", err)
			}

			viper.Set("token", token)
			if err := viper.WriteConfig(); err != nil {
				if err := viper.SafeWriteConfig(); err != nil {
					return fmt.Errorf("failed to save token: %v", err)
				}
			}
			fmt.Println("Login successful")
			return nil
		},
	}
	cmd.Flags().StringP("username", "u", "", "username")
	cmd.Flags().StringP("password", "p", "", "password")
	cmd.MarkFlagRequired("username")
	cmd.MarkFlagRequired("password")
	return cmd
}

func newScheduleCommand() *cobra.Command {
	scheduleCmd := &cobra.Command{
		Use:   "schedule",
		Short: "Manage scheduled reports",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "List scheduled reports",
		RunE: func(cmd *cobra.Command, args []string) error {
			schedules, err := apiClient().ListSchedules()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ID\tNAME\tEXPRESSION\tACTIVE\tNEXT RUN\tOK\tFAIL\t")
			for _, s := range schedules {
				nextRun := "-"
				if s.NextRun != nil {
					nextRun = s.NextRun.Format(time.RFC3339)
				}
				fmt.Fprintf(w, "%d\t%s\t%s\t%t\t%s\t%d\t%d\t\n",
					s.ID, s.Name, s.ScheduleExpression, s.IsActive, nextRun,
					s.SuccessCount, s.FailureCount)
			}
			w.Flush()
			return nil
		},
	}

	createCmd := &cobra.Command{
		Use:   "create",
		Short: "Create a scheduled report from JSON on stdin",
		RunE: func(cmd *cobra.Command, args []string) error {
			var sr models.ScheduledReport
			if err := json.NewDecoder(os.Stdin).Decode(&sr); err != nil {
				return fmt.Errorf("invalid schedule JSON: %v", err)
			}

			created, err := apiClient().CreateSchedule(&sr)
			if err != nil {
				return err
			}
			fmt.Printf("Created schedule %d (%s)\n", created.ID, created.Name)
			return nil
		},
	}

	toggleCmd := &cobra.Command{
		Use:   "toggle [id]",
		Short: "Pause or resume a scheduled report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			sr, err := apiClient().ToggleSchedule(id)
			if err != nil {
				return err
			}
			state := "paused"
			if sr.IsActive {
				state = "active"
			}
			fmt.Printf("Schedule %d is now %s\n", sr.ID, state)
			return nil
		},
	}

	var runParams map[string]string
	runCmd := &cobra.Command{
		Use:   "run [id]",
		Short: "Run a scheduled report immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			result, err := apiClient().RunSchedule(id, runParams)
			if err != nil {
				return err
			}
			if !result.Success {
				return fmt.Errorf("execution %d failed: %s", result.ExecutionID, result.ErrorMessage)
			}
			fmt.Printf("Execution %d completed in %.2fs: %s\n", result.ExecutionID, result.Duration, result.FilePath)
			return nil
		},
	}
	runCmd.Flags().StringToStringVar(&runParams, "param", nil, "report parameters for this run (key=value)")

	deleteCmd := &cobra.Command{
		Use:   "delete [id]",
		Short: "Delete a scheduled report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := apiClient().DeleteSchedule(id); err != nil {
				return err
			}
			fmt.Printf("Schedule %d deleted\n", id)
			return nil
		},
	}

	scheduleCmd.AddCommand(listCmd, createCmd, toggleCmd, runCmd, deleteCmd)
	return scheduleCmd
}

func newExecutionsCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "executions [schedule-id]",
		Short: "Show execution history of a scheduled report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}

			executions, err := apiClient().ListExecutions(id, limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ID\tTIME\tSTATUS\tDURATION\tDELIVERY\tERROR\t")
			for _, e := range executions {
				fmt.Fprintf(w, "%d\t%s\t%s\t%.2fs\t%s\t%s\t\n",
					e.ID, e.ExecutionTime.Format(time.RFC3339), e.Status,
					e.Duration, e.DeliveryStatus, e.ErrorMessage)
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "maximum number of executions to show")
	return cmd
}

func newPatientsCommand() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "List registry patients",
		RunE: func(cmd *cobra.Command, args []string) error {
			patients, err := apiClient().ListPatients(limit)
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ID\tMRN\tNAME\tSEX\tVITAL STATUS\t")
			for _, p := range patients {
				fmt.Fprintf(w, "%d\t%s\t%s %s\t%s\t%s\t\n",
					p.ID, p.MRN, p.FirstName, p.LastName, p.Sex, p.VitalStatus)
			}
			w.Flush()
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum number of patients to show")
	return cmd
}

func newTemplatesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "templates",
		Short: "List report templates",
		RunE: func(cmd *cobra.Command, args []string) error {
			templates, err := apiClient().ListTemplates()
			if err != nil {
				return err
			}

			w := tabwriter.NewWriter(os.Stdout, 0, 0, 3, ' ', tabwriter.TabIndent)
			fmt.Fprintln(w, "ID\tNAME\tDATA SOURCE\tPERIOD DAYS\t")
			for _, tmpl := range templates {
				fmt.Fprintf(w, "%d\t%s\t%s\t%d\t\n",
					tmpl.ID, tmpl.Name, tmpl.DataSource, tmpl.PeriodDays)
			}
			w.Flush()
			return nil
		},
	}
}
