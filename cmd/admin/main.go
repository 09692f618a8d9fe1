// Command admin performs operator tasks against a HongDating deployment.
package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"

	"hongdating/internal/cache"
	"hongdating/internal/config"
	"hongdating/internal/database"
	"hongdating/internal/featureflags"
	"hongdating/internal/models"
	"hongdating/internal/repository"
	"hongdating/internal/service"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

// env holds the connections a command needs.
type env struct {
	db    *gorm.DB
	rdb   *redis.Client
	flags string
}

type connector func() (*env, error)

func main() {
	if err := newRootCmd(connectFromConfig).ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func connectFromConfig() (*env, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	db, err := database.ConnectWithOptions(cfg, database.ConnectOptions{ApplySchema: false})
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return &env{db: db, rdb: cache.InitRedis(cfg.RedisURL), flags: cfg.FeatureFlags}, nil
}

func parseUserID(arg string) (uint, error) {
	id, err := strconv.ParseUint(arg, 10, 32)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid id %q", arg)
	}
	return uint(id), nil
}

func newRootCmd(connect connector) *cobra.Command {
	root := &cobra.Command{
		Use:          "admin",
		Short:        "HongDating operator tools",
		SilenceUsage: true,
	}
	root.AddCommand(
		promoteCmd(connect, true),
		promoteCmd(connect, false),
		listAdminsCmd(connect),
		resolveReportCmd(connect),
		maintenanceCmd(connect),
	)
	return root
}

func promoteCmd(connect connector, admin bool) *cobra.Command {
	use, short, verb := "promote <user_id>", "Grant admin rights to a user", "promoted"
	if !admin {
		use, short, verb = "demote <user_id>", "Revoke admin rights from a user", "demoted"
	}
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			e, err := connect()
			if err != nil {
				return err
			}
			users := repository.NewUserRepository(e.db)
			user, err := users.GetByID(cmd.Context(), id)
			if err != nil {
				return err
			}
			if user.IsAdmin == admin {
				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) is already %s\n", user.ID, displayName(user), roleName(admin))
				return nil
			}
			if err := users.SetAdmin(cmd.Context(), id, admin); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "user %d (%s) %s\n", user.ID, displayName(user), verb)
			return nil
		},
	}
}

func listAdminsCmd(connect connector) *cobra.Command {
	return &cobra.Command{
		Use:   "list-admins",
		Short: "List every admin account",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			e, err := connect()
			if err != nil {
				return err
			}
			admins, err := repository.NewUserRepository(e.db).ListAdmins(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if len(admins) == 0 {
				_, _ = fmt.Fprintln(out, "no admins")
				return nil
			}
			for i := range admins {
				printAdmin(out, &admins[i])
			}
			return nil
		},
	}
}

func resolveReportCmd(connect connector) *cobra.Command {
	var (
		adminID uint
		dismiss bool
		note    string
	)
	cmd := &cobra.Command{
		Use:   "resolve-report <report_id>",
		Short: "Close an open report",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reportID, err := parseUserID(args[0])
			if err != nil {
				return err
			}
			e, err := connect()
			if err != nil {
				return err
			}
			users := repository.NewUserRepository(e.db)
			operator, err := users.GetByID(cmd.Context(), adminID)
			if err != nil {
				return err
			}
			if !operator.IsAdmin {
				return fmt.Errorf("user %d is not an admin", adminID)
			}

			status := models.ReportStatusResolved
			if dismiss {
				status = models.ReportStatusDismissed
			}
			mod := service.NewModerationService(repository.NewModerationRepository(e.db), users,
				repository.NewPostRepository(e.db), repository.NewChatRepository(e.db), nil)
			report, err := mod.ResolveReport(cmd.Context(), service.ResolveReportInput{
				AdminID:  adminID,
				ReportID: reportID,
				Status:   status,
				Note:     note,
			})
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "report %d %s by admin %d\n", report.ID, report.Status, adminID)
			return nil
		},
	}
	cmd.Flags().UintVar(&adminID, "admin", 0, "id of the admin closing the report")
	cmd.Flags().BoolVar(&dismiss, "dismiss", false, "dismiss instead of resolve")
	cmd.Flags().StringVar(&note, "note", "", "resolution note")
	_ = cmd.MarkFlagRequired("admin")
	return cmd
}

func maintenanceCmd(connect connector) *cobra.Command {
	return &cobra.Command{
		Use:       "maintenance <on|off>",
		Short:     "Toggle maintenance mode for every API instance",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"on", "off"},
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := connect()
			if err != nil {
				return err
			}
			if e.rdb == nil {
				return fmt.Errorf("redis is required to change maintenance mode")
			}
			flags := featureflags.NewManager(e.flags).WithRedis(e.rdb)
			if err := flags.Set(cmd.Context(), featureflags.Maintenance, args[0]); err != nil {
				return err
			}
			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "maintenance %s\n", args[0])
			return nil
		},
	}
}

func displayName(u *models.User) string {
	if u.Nickname == "" {
		return "no nickname"
	}
	return u.Nickname
}

func roleName(admin bool) string {
	if admin {
		return "an admin"
	}
	return "a member"
}

func printAdmin(w io.Writer, u *models.User) {
	_, _ = fmt.Fprintf(w, "%d\t%s\t%s\n", u.ID, displayName(u), u.CreatedAt.Format("2006-01-02"))
}
