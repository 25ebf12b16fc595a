package main

import (
	"errors"
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/semmidev/custos/internal/domain"
)

var backupCmd = &cobra.Command{
	Use:   "backup",
	Short: "Create a backup now",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		backup, err := application.Backups().Create(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("backup created: %s (%s)", backup.Filename, domain.FormatSize(backup.Size))))
		return nil
	},
}

var restoreYes bool

var restoreCmd = &cobra.Command{
	Use:   "restore <filename>",
	Short: "Replace the database contents with a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if !restoreYes {
			return errors.New("restore overwrites the database; re-run with --yes to confirm")
		}

		application, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		if err := application.Backups().Restore(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("database restored from %s", args[0])))
		return nil
	},
}

func init() {
	restoreCmd.Flags().BoolVar(&restoreYes, "yes", false, "confirm the restore")
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List backups, newest first",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		backups, err := application.Backups().List(cmd.Context())
		if err != nil {
			return err
		}

		if len(backups) == 0 {
			fmt.Println(dimStyle.Render("no backups found"))
			fmt.Println(dimStyle.Render("create one with: custos backup"))
			return nil
		}

		fmt.Println(titleStyle.Render(fmt.Sprintf("==> backups (%d)", len(backups))))
		fmt.Println()
		fmt.Println(backupsTable(backups))
		return nil
	},
}

func backupsTable(backups []domain.Backup) *table.Table {
	rows := make([][]string, 0, len(backups))
	var total int64
	for _, b := range backups {
		total += b.Size
		rows = append(rows, []string{
			b.Filename,
			b.CreatedAt.Local().Format("2006-01-02 15:04:05"),
			domain.FormatSize(b.Size),
		})
	}
	rows = append(rows, []string{"total", "", domain.FormatSize(total)})

	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return lipgloss.NewStyle().
					Foreground(lipgloss.Color("86")).
					Bold(true).
					Align(lipgloss.Center)
			}
			if row == len(rows)-1 {
				return lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
			}
			return lipgloss.NewStyle().Foreground(lipgloss.Color("252"))
		}).
		Headers("filename", "created", "size").
		Rows(rows...)
}

var deleteCmd = &cobra.Command{
	Use:   "delete <filename>",
	Short: "Delete a backup",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		if err := application.Backups().Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("deleted %s", args[0])))
		return nil
	},
}

var pruneCmd = &cobra.Command{
	Use:   "prune",
	Short: "Delete backups beyond max_backups",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		application, err := loadApp(cmd.Context())
		if err != nil {
			return err
		}
		defer application.Close()

		deleted, err := application.Backups().Prune(cmd.Context())
		if err != nil {
			return err
		}
		fmt.Println(successStyle.Render(fmt.Sprintf("pruned %d backup(s)", deleted)))
		return nil
	},
}
