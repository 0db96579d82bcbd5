package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"homerent/bootstrap"
	"homerent/pkg/app"
	"homerent/pkg/jwt"
)

func syncAllCmd(env *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync-all",
		Short: "与支付网关同步所有待支付、逾期账单",
		Args:  cobra.NoArgs,
		RunE: withApp(env, func(ctx context.Context, a *bootstrap.Application) (interface{}, error) {
			return a.Payments.SyncAll(ctx)
		}),
	}
}

func syncCmd(env *string) *cobra.Command {
	return &cobra.Command{
		Use:   "sync <payment-id>",
		Short: "同步单笔账单",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(env, func(ctx context.Context, a *bootstrap.Application) (interface{}, error) {
				outcome, err := a.Payments.SyncStatus(ctx, args[0])
				if err != nil {
					return nil, err
				}
				return map[string]interface{}{"payment_id": args[0], "outcome": outcome}, nil
			})(cmd, args)
		},
	}
}

func cleanupCmd(env *string) *cobra.Command {
	return &cobra.Command{
		Use:   "cleanup-duplicates",
		Short: "同一租客、类型、账期只保留一条账单",
		Args:  cobra.NoArgs,
		RunE: withApp(env, func(ctx context.Context, a *bootstrap.Application) (interface{}, error) {
			return a.Payments.CleanupDuplicates(ctx)
		}),
	}
}

func markOverdueCmd(env *string) *cobra.Command {
	return &cobra.Command{
		Use:   "mark-overdue",
		Short: "把超过宽限期的待支付账单标记为逾期",
		Args:  cobra.NoArgs,
		RunE: withApp(env, func(ctx context.Context, a *bootstrap.Application) (interface{}, error) {
			n, err := a.Payments.MarkOverdue(ctx, app.TimenowInTimezone())
			return map[string]int{"marked": n}, err
		}),
	}
}

func remindCmd(env *string) *cobra.Command {
	var (
		ownerID string
		async   bool
	)
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "给房东名下待支付、逾期账单的租客发送提醒",
		Args:  cobra.NoArgs,
		RunE: withApp(env, func(ctx context.Context, a *bootstrap.Application) (interface{}, error) {
			if async {
				if a.Queue == nil {
					return nil, fmt.Errorf("queue unavailable, run without --async")
				}
				jobID, err := a.Queue.EnqueueReminders(ctx, ownerID)
				return map[string]string{"job_id": jobID}, err
			}
			sent, err := a.Notify.SendDueReminders(ctx, ownerID)
			return map[string]int{"sent": sent}, err
		}),
	}
	cmd.Flags().StringVar(&ownerID, "owner", "", "房东用户 ID")
	cmd.Flags().BoolVar(&async, "async", false, "投递到任务队列，由服务进程发送")
	_ = cmd.MarkFlagRequired("owner")
	return cmd
}

// tokenCmd 签发调试用令牌，正式令牌由账号服务签发
func tokenCmd(env *string) *cobra.Command {
	var (
		userID string
		role   string
		ttl    time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "签发调试用 JWT",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			bootstrap.LoadConfig(*env)
			j := jwt.NewJWT()
			if ttl > 0 {
				j.ExpireTime = ttl
			}
			token, err := j.IssueToken(userID, role)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}
	cmd.Flags().StringVar(&userID, "user", "", "用户 ID")
	cmd.Flags().StringVar(&role, "role", "owner", "角色：owner 或 tenant")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "有效期，默认读取 jwt.expire_time")
	_ = cmd.MarkFlagRequired("user")
	return cmd
}
