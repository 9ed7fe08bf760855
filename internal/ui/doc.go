// Package ui provides semantic text formatting for CLI output.
//
// Formatters render content according to its meaning (a command, a path,
// an environment name) and adapt to terminal capabilities. With colors
// available content is colorized. When NO_COLOR is set or the terminal
// doesn't support colors, text decorations are used instead:
//
//	ui.Code.Sprint("vaultic encrypt --all")  // `vaultic encrypt --all`
//	ui.Env.Sprint("staging")                 // 'staging'
//	ui.Muted.Sprint("skipped")               // (skipped)
//
// Status lines combine a marker with a message:
//
//	ui.SuccessLine("Encrypted dev for 3 recipient(s)")
//	ui.HintLine("Run " + ui.Code.Sprint("vaultic check"))
package ui
