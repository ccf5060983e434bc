package mylog

import (
	"log/slog"

	"github.com/jcooky/go-din"

	"github.com/nadavsuissa/AiChatManager1/config"
)

func init() {
	din.RegisterT(func(c *din.Container) (*slog.Logger, error) {
		conf, err := din.GetT[*config.Config](c)
		if err != nil {
			return nil, err
		}
		if c.Env == din.EnvTest {
			return NewLogger("error", conf.Log.LogHandler), nil
		}
		return NewLogger(conf.Log.LogLevel, conf.Log.LogHandler), nil
	})
}
