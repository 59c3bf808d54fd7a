package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Seanzed08/SmartLab/internal/model"
	"github.com/Seanzed08/SmartLab/pkg/jwt"
)

func newTokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发 JWT（读卡器终端凭证或联调用 Access Token）",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Usage()
		},
	}

	device := &cobra.Command{
		Use:   "device <reader-id>",
		Short: "为读卡器签发终端凭证",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			mgr, err := newJWTManager()
			if err != nil {
				return err
			}
			token, err := mgr.GenerateDeviceToken(args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	access := &cobra.Command{
		Use:   "access <user-id>",
		Short: "为用户签发 Access Token",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			role, err := cmd.Flags().GetString("role")
			if err != nil {
				return err
			}
			if role != model.RoleTeacher && role != model.RoleAdmin {
				return fmt.Errorf("role 只能为 %s 或 %s", model.RoleTeacher, model.RoleAdmin)
			}
			mgr, err := newJWTManager()
			if err != nil {
				return err
			}
			token, err := mgr.GenerateAccessToken(args[0], role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	access.Flags().String("role", model.RoleTeacher, "角色：teacher | admin")

	cmd.AddCommand(device, access)
	return cmd
}

func newJWTManager() (*jwt.Manager, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("未配置 auth.jwt_secret")
	}
	return jwt.NewManager(&cfg.Auth), nil
}
