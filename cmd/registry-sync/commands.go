package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/WailSalutem-Health-Care/registry-sync/internal/pagination"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/patient"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/reconcile"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/registry"
	"github.com/WailSalutem-Health-Care/registry-sync/internal/search"
)

type services struct {
	patients   patient.ServiceInterface
	searches   search.ServiceInterface
	reconciler reconcile.ServiceInterface
	pageSize   int
}

type serviceLoader func(ctx context.Context) (*services, func(), error)

func newRootCmd(load serviceLoader) *cobra.Command {
	root := &cobra.Command{
		Use:          "registry-sync",
		Short:        "Keep local donors in sync with the WMDA search registry",
		SilenceUsage: true,
	}

	// run loads the services, calls fn and always releases them.
	run := func(cmd *cobra.Command, fn func(ctx context.Context, s *services) error) error {
		s, cleanup, err := load(cmd.Context())
		if err != nil {
			return err
		}
		defer cleanup()
		return fn(cmd.Context(), s)
	}

	root.AddCommand(patientCmd(run))
	root.AddCommand(searchCmd(run))
	root.AddCommand(patientsCmd(run))
	root.AddCommand(reconcileCmd(run))
	return root
}

type runner func(cmd *cobra.Command, fn func(ctx context.Context, s *services) error) error

func patientCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patient",
		Short: "Register or update a donor as a registry patient",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "sync <donorId>",
		Short: "Create the registry patient, or update it when the donor already has a wmdaId",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *services) error {
				action, err := s.patients.SyncPatient(ctx, args[0])
				if err != nil {
					return fmt.Errorf("patient sync %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Patient %s %s successfully\n", args[0], action)
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "create <donorId>",
		Short: "Create a registry patient for the donor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *services) error {
				if err := s.patients.CreatePatient(ctx, args[0]); err != nil {
					return fmt.Errorf("patient create %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Patient %s created successfully\n", args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "update <donorId>",
		Short: "Replace the registry patient the donor is registered as",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *services) error {
				if err := s.patients.UpdatePatient(ctx, args[0]); err != nil {
					return fmt.Errorf("patient update %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Patient %s updated successfully\n", args[0])
				return nil
			})
		},
	})

	return cmd
}

func searchCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search",
		Short: "Start and inspect registry searches",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "create <donorId>",
		Short: "Start a search for the donor and store its searchId",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *services) error {
				searchID, err := s.searches.CreateSearch(ctx, args[0])
				if err != nil {
					return fmt.Errorf("search create %s: %w", args[0], err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Search %s created for donor %s\n", searchID, args[0])
				return nil
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "list <donorId>",
		Short: "Print the registry's search list for the donor",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *services) error {
				result, err := s.searches.ListSearches(ctx, args[0])
				if err != nil {
					return fmt.Errorf("search list %s: %w", args[0], err)
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "summary <donorId>",
		Short: "Print the registry's summary of the donor's latest search",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *services) error {
				result, err := s.searches.GetSearchSummary(ctx, args[0])
				if err != nil {
					return fmt.Errorf("search summary %s: %w", args[0], err)
				}
				return printJSON(cmd.OutOrStdout(), result)
			})
		},
	})

	return cmd
}

func patientsCmd(run runner) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "patients",
		Short: "Inspect the registry's patient collection",
	}

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "Print one page of registry patients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			limit, _ := cmd.Flags().GetInt("limit")
			offset, _ := cmd.Flags().GetInt("offset")
			onlyMine, _ := cmd.Flags().GetBool("only-mine")

			return run(cmd, func(ctx context.Context, s *services) error {
				if limit < 1 {
					limit = s.pageSize
				}
				list, err := s.patients.ListRegistryPatients(ctx, pagination.Params{
					Limit:    limit,
					Offset:   offset,
					OnlyMine: onlyMine,
				})
				if err != nil {
					return fmt.Errorf("patients list: %w", err)
				}
				printPatients(cmd.OutOrStdout(), list)
				return nil
			})
		},
	}
	listCmd.Flags().Int("limit", 0, "Patients per page (defaults to REGISTRY_PAGE_SIZE)")
	listCmd.Flags().Int("offset", 0, "Index of the first patient")
	listCmd.Flags().Bool("only-mine", false, "Only list patients assigned to this client")
	cmd.AddCommand(listCmd)

	return cmd
}

func reconcileCmd(run runner) *cobra.Command {
	return &cobra.Command{
		Use:   "reconcile",
		Short: "Backfill wmdaId for donors the registry already knows",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd, func(ctx context.Context, s *services) error {
				result, err := s.reconciler.ReconcileAll(ctx)
				if err != nil {
					return fmt.Errorf("reconcile: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Reconcile finished: %d updated, %d skipped, %d failed\n",
					result.Updated, result.Skipped, result.Failed)
				return nil
			})
		},
	}
}

func printJSON(w io.Writer, raw json.RawMessage) error {
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printPatients(w io.Writer, list *registry.PatientList) {
	fmt.Fprintln(w, "Total patients found:", list.Paging.TotalCount)
	for _, p := range list.Patients {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "Patient ID:", p.PatientID.String())
		fmt.Fprintln(w, "WMDA ID:", p.WmdaID.String())
		fmt.Fprintln(w, "Status:", p.Status)
		fmt.Fprintln(w, "Date of Birth:", p.DateOfBirth)
		fmt.Fprintln(w, "Ethnicity:", p.Ethnicity)
		fmt.Fprintln(w, "Assigned User:", p.AssignedUserName)
		fmt.Fprintln(w, "Last Updated:", p.LastUpdated)
		fmt.Fprintln(w, "Requests Summary:", p.RequestSummaryText())
	}
}
