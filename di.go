package aichatmanager

import (
	"log/slog"

	"github.com/jcooky/go-din"

	"github.com/nadavsuissa/AiChatManager1/config"
	"github.com/nadavsuissa/AiChatManager1/provider"
)

func init() {
	din.RegisterT(func(c *din.Container) (*Orchestrator, error) {
		conf, err := din.GetT[*config.Config](c)
		if err != nil {
			return nil, err
		}
		gateway, err := din.GetT[provider.Gateway](c)
		if err != nil {
			return nil, err
		}

		return NewOrchestrator(
			WithGateway(gateway),
			WithLogger(din.MustGetT[*slog.Logger](c)),
			WithOpenAIConfig(conf.OpenAI),
			WithConversationConfig(conf.Conversation),
		)
	})
}
