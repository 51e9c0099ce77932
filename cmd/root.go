package cmd

import (
	"errors"
	"log"
	"os"
	"strings"

	"torrent-factory/app/config"
	"torrent-factory/app/server"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

var rootCmd = &cobra.Command{
	Use:     "torrent-factory",
	Short:   "媒体库种子生成工具",
	Long:    "扫描剧集和电影目录，按语言标签批量生成 .torrent 文件",
	Version: server.Version,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "配置文件路径 (默认 ./data/config.yaml)")
}

// initConfig 读取配置文件和环境变量（如果设置）
func initConfig() {
	config.SetDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		// 添加配置文件搜索路径
		viper.AddConfigPath("./data") // 相对于当前工作目录的 data 文件夹
		viper.AddConfigPath(".")      // 当前目录
		viper.SetConfigType("yaml")
		viper.SetConfigName("config")
	}

	// TF_SERVER_PORT 对应 server.port
	viper.SetEnvPrefix("TF")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// 没有配置文件时使用默认值
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if cfgFile != "" || !errors.As(err, &notFound) {
			log.Println("配置文件读取失败:", err)
			os.Exit(1)
		}
	}
}
