package core_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/tasktrack/core"
	"github.com/trezcool/tasktrack/services/logger"
)

func TestEmailMessage_Render(t *testing.T) {
	conf := core.NewTestConfig()
	conf.AppName = "Tracker"
	core.ParseEmailTemplates(conf, logsvc.NewDiscardLogger())

	tests := []struct {
		name     string
		msg      core.EmailMessage
		wantText string
		wantHTML bool
		wantErr  bool
	}{
		{name: "no template", msg: core.EmailMessage{}},
		{name: "plain body", msg: core.EmailMessage{BodyStr: "hello"}, wantText: "hello"},
		{
			name: "text only template",
			msg: core.EmailMessage{TemplateName: "report", TemplateData: map[string]interface{}{
				"Filter": "all", "Date": "2024-03-15", "Rows": 2,
			}},
			wantText: "Attached is the all student report generated on 2024-03-15 (2 students).",
		},
		{
			name: "text and html template",
			msg: core.EmailMessage{TemplateName: "welcome", TemplateData: map[string]interface{}{
				"Name": "Ada", "StudentID": "DSV0001", "Email": "ada@test.cd", "Password": "tmp",
			}},
			wantText: "Tracker\n" + conf.FrontendBaseURL,
			wantHTML: true,
		},
		{name: "missing data", msg: core.EmailMessage{TemplateName: "welcome"}, wantErr: true},
		{name: "unknown template", msg: core.EmailMessage{TemplateName: "nope"}, wantErr: true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.msg.Render()
			if tc.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Contains(t, tc.msg.TextContent, tc.wantText)
			assert.Equal(t, tc.wantHTML, tc.msg.HTMLContent != "")
		})
	}
}
