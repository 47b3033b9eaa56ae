package ui

import "github.com/charmbracelet/lipgloss"

var (
	spinnerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("99"))
	messageStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true)
	warnStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	infoStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	labelStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("212"))
	headerStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("99")).Bold(true)
	dividerStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("240"))
)

const dividerLine = "━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━"

func GetSuccessStyle() lipgloss.Style { return successStyle }
func GetErrorStyle() lipgloss.Style   { return errorStyle }
func GetWarnStyle() lipgloss.Style    { return warnStyle }
func GetInfoStyle() lipgloss.Style    { return infoStyle }
func GetLabelStyle() lipgloss.Style   { return labelStyle }
func GetHeaderStyle() lipgloss.Style  { return headerStyle }

func Divider() string {
	return dividerStyle.Render(dividerLine)
}
