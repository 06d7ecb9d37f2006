package main

import (
	"encoding/json"
	"os"

	"participant-import-backend/internal/config"
	"participant-import-backend/internal/parser"
	"participant-import-backend/internal/services/importrequest"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

var reconcileEventID string

// reconcileCmd is a dry run: it prints what an upload of the file would
// produce without storing a request.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile <file>",
	Short: "Reconcile a participant sheet against an event and print the result",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		f, err := os.Open(args[0])
		if err != nil {
			return errors.Wrap(err, "open sheet")
		}
		defer f.Close()

		rows, err := parser.Parse(f, args[0], cfg.Upload.MaxRows)
		if err != nil {
			return err
		}

		db, err := config.InitDB(cfg.Database, false)
		if err != nil {
			return err
		}
		defer func() { _ = config.CloseDB(db) }()

		directory, closeDirectory, err := openDirectory(db)
		if err != nil {
			return err
		}
		defer closeDirectory()

		svc := importrequest.NewService(nil, directory, newReconciler(), nil)
		res, err := svc.Preview(cmd.Context(), reconcileEventID, rows)
		if err != nil {
			return err
		}

		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	},
}

func init() {
	reconcileCmd.Flags().StringVar(&reconcileEventID, "event", "", "event whose participants and reference data are used")
	_ = reconcileCmd.MarkFlagRequired("event")
}
