package agpatch

import (
	"fmt"
	"strconv"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
)

// runFeatureEditor shows a full-screen form for the sidebar and manager
// feature configuration. It returns the edited configs and whether the
// user chose Save.
func runFeatureEditor(features FeatureConfig, manager ManagerFeatureConfig) (FeatureConfig, ManagerFeatureConfig, bool, error) {
	app := tview.NewApplication()
	saved := false

	styleOptions := []string{"icon", "text", "both"}
	bottomOptions := []string{"float", "inline", "none"}
	optionIndex := func(options []string, value string) int {
		for i, s := range options {
			if s == value {
				return i
			}
		}
		return 0
	}

	form := tview.NewForm().
		AddCheckbox("Sidebar patch enabled", features.Enabled, func(v bool) { features.Enabled = v }).
		AddCheckbox("  Mermaid diagrams", features.Mermaid, func(v bool) { features.Mermaid = v }).
		AddCheckbox("  Math rendering", features.Math, func(v bool) { features.Math = v }).
		AddCheckbox("  Copy button", features.CopyButton, func(v bool) { features.CopyButton = v }).
		AddCheckbox("  Table coloring", features.TableColor, func(v bool) { features.TableColor = v }).
		AddCheckbox("  Custom font size", features.FontSizeEnabled, func(v bool) { features.FontSizeEnabled = v }).
		AddInputField("  Font size (px)", fmt.Sprintf("%g", features.FontSize), 6, tview.InputFieldFloat, func(v string) {
			if f, err := strconv.ParseFloat(v, 64); err == nil {
				features.FontSize = f
			}
		}).
		AddDropDown("  Copy button style", styleOptions, optionIndex(styleOptions, features.CopyButtonStyle), func(option string, _ int) {
			features.CopyButtonStyle = option
		}).
		AddDropDown("  Bottom copy button", bottomOptions, optionIndex(bottomOptions, features.CopyButtonShowBottom), func(option string, _ int) {
			features.CopyButtonShowBottom = option
		}).
		AddInputField("  Copy button text", features.CopyButtonCustomText, 20, nil, func(v string) {
			features.CopyButtonCustomText = v
		}).
		AddCheckbox("Manager patch enabled", manager.Enabled, func(v bool) { manager.Enabled = v }).
		AddCheckbox("  Mermaid diagrams", manager.Mermaid, func(v bool) { manager.Mermaid = v }).
		AddCheckbox("  Math rendering", manager.Math, func(v bool) { manager.Math = v }).
		AddCheckbox("  Copy button", manager.CopyButton, func(v bool) { manager.CopyButton = v }).
		AddCheckbox("  Limit content width", manager.MaxWidthEnabled, func(v bool) { manager.MaxWidthEnabled = v }).
		AddInputField("  Max width (%)", fmt.Sprintf("%g", manager.MaxWidthRatio), 6, tview.InputFieldFloat, func(v string) {
			if f, err := strconv.ParseFloat(v, 64); err == nil && f > 0 && f <= 100 {
				manager.MaxWidthRatio = f
			}
		})

	form.AddButton("Save", func() {
		saved = true
		app.Stop()
	})
	form.AddButton("Cancel", func() {
		app.Stop()
	})

	form.SetBorder(true).SetTitle(" agpatch feature configuration ")
	form.SetCancelFunc(func() {
		app.Stop()
	})
	form.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		if event.Key() == tcell.KeyCtrlQ {
			app.Stop()
			return nil
		}
		return event
	})

	if err := app.SetRoot(form, true).EnableMouse(true).Run(); err != nil {
		return features, manager, false, err
	}
	return features, manager, saved, nil
}
