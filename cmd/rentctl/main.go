// rentctl 运维命令行：手动对账、清理重复账单、标记逾期、发送催缴提醒
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"homerent/bootstrap"
	btsConfig "homerent/config"
)

func init() {
	btsConfig.Initialize()
}

func main() {
	var env string

	rootCmd := &cobra.Command{
		Use:           "rentctl",
		Short:         "Homerent billing maintenance",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "加载 .env.<env> 文件")

	rootCmd.AddCommand(syncAllCmd(&env))
	rootCmd.AddCommand(syncCmd(&env))
	rootCmd.AddCommand(cleanupCmd(&env))
	rootCmd.AddCommand(markOverdueCmd(&env))
	rootCmd.AddCommand(remindCmd(&env))
	rootCmd.AddCommand(tokenCmd(&env))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}

// withApp 启动业务服务后执行命令，结束时释放连接
func withApp(env *string, run func(ctx context.Context, a *bootstrap.Application) (interface{}, error)) func(cmd *cobra.Command, args []string) error {
	return func(cmd *cobra.Command, args []string) error {
		a, err := bootstrap.Boot(*env)
		if err != nil {
			return err
		}
		defer a.Shutdown()

		out, err := run(cmd.Context(), a)
		if err == nil && out != nil {
			printJSON(cmd, out)
		}
		return err
	}
}

func printJSON(cmd *cobra.Command, v interface{}) {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	_ = enc.Encode(v)
}
