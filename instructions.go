package aichatmanager

import (
	"bytes"
	_ "embed"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig/v3"

	"github.com/nadavsuissa/AiChatManager1/errors"
)

var (
	//go:embed data/instructions/assistant.md.tmpl
	assistantInst     string
	assistantInstTmpl = template.Must(template.New("assistantInst").Funcs(sprig.TxtFuncMap()).Parse(assistantInst))
)

type AssistantInstructions struct {
	ProjectName       string
	Language          string
	RightToLeft       bool
	ExtraInstructions string
}

func DefaultAssistantInstructions(projectName string) AssistantInstructions {
	return AssistantInstructions{
		ProjectName: projectName,
		Language:    "Hebrew",
		RightToLeft: true,
	}
}

func RenderAssistantInstructions(in AssistantInstructions) (string, error) {
	var buf bytes.Buffer
	if err := assistantInstTmpl.Execute(&buf, in); err != nil {
		return "", errors.Wrapf(err, "failed to render assistant instructions")
	}
	return strings.TrimSpace(buf.String()), nil
}
