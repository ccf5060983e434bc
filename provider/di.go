package provider

import (
	"log/slog"

	"github.com/jcooky/go-din"

	"github.com/nadavsuissa/AiChatManager1/config"
)

func init() {
	din.RegisterT(func(c *din.Container) (Gateway, error) {
		conf, err := din.GetT[*config.Config](c)
		if err != nil {
			return nil, err
		}
		logger := din.MustGetT[*slog.Logger](c)

		gateway, err := NewOpenAIGateway(conf.OpenAI, logger)
		if err != nil {
			return nil, err
		}
		return gateway, nil
	})
}
