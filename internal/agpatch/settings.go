package agpatch

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/gookit/color"
)

// handleSettingsCommand provides an interactive menu to adjust agpatch settings
func handleSettingsCommand(cfg *Config) error {
	reader := bufio.NewReader(os.Stdin)

	for {
		fmt.Println()
		colArrow.Print("-> ")
		colSuccess.Println("Agpatch Settings")
		fmt.Println("--------------------------------")

		// 1. Debug Mode
		debugStatus := "Disabled"
		if Debug {
			debugStatus = "Enabled"
		}
		fmt.Printf("1) Toggle Debug Mode: [%s]\n", color.Note.Sprint(debugStatus))

		// 2. Language
		lang := "zh-CN"
		if !isZhLocale(Locale) {
			lang = "en-US"
		}
		fmt.Printf("2) Select Language: [%s]\n", color.Note.Sprint(lang))

		// 3. Install Path
		shownPath := SavedPath
		if shownPath == "" {
			shownPath = "(auto-detect)"
		}
		fmt.Printf("3) Set Install Path: [%s]\n", color.Note.Sprint(shownPath))

		// 4. Patches Override Dir
		shownPatches := PatchesDir
		if shownPatches == "" {
			shownPatches = "(embedded)"
		}
		fmt.Printf("4) Set Patches Override Dir: [%s]\n", color.Note.Sprint(shownPatches))

		fmt.Println("q) Quit")
		fmt.Println("--------------------------------")
		fmt.Print("Choice: ")

		choice, _ := reader.ReadString('\n')
		choice = strings.TrimSpace(choice)

		if choice == "q" {
			break
		}

		switch choice {
		case "1":
			newValue := "0"
			if !Debug {
				newValue = "1"
			}
			if err := setConfigValue(cfg, "AGPATCH_DEBUG", newValue); err != nil {
				colError.Printf("Error: %v\n", err)
			} else {
				colSuccess.Println("Debug mode updated successfully.")
			}

		case "2":
			fmt.Println("\nAvailable Languages:")
			fmt.Println("1) zh-CN")
			fmt.Println("2) en-US")
			fmt.Print("Choice: ")

			lChoice, _ := reader.ReadString('\n')
			lChoice = strings.TrimSpace(lChoice)
			var newLocale string
			switch lChoice {
			case "1":
				newLocale = "zh-CN"
			case "2":
				newLocale = "en-US"
			}

			if newLocale != "" {
				if err := setConfigValue(cfg, "AGPATCH_LOCALE", newLocale); err != nil {
					colError.Printf("Error: %v\n", err)
				} else {
					colSuccess.Println("Language updated successfully.")
				}
			}

		case "3":
			fmt.Print("\nEnter install path (empty to auto-detect): ")
			path, _ := reader.ReadString('\n')
			path = strings.TrimSpace(path)

			if path == "" {
				root, ok := detectInstallRoot(currentPlatform())
				if !ok {
					colWarn.Println("No Antigravity install found in the usual places.")
					continue
				}
				path = root
				colNote.Printf("Detected: %s\n", path)
			} else if _, ok := normalizeInstallRoot(path); !ok {
				colWarn.Println("That path does not look like an Antigravity install.")
				continue
			}

			if err := setConfigValue(cfg, "AGPATCH_INSTALL_PATH", path); err != nil {
				colError.Printf("Error: %v\n", err)
			} else {
				colSuccess.Printf("Install path set to: %s\n", path)
			}

		case "4":
			fmt.Print("\nEnter patches dir (empty to use the embedded bundle): ")
			dir, _ := reader.ReadString('\n')
			dir = strings.TrimSpace(dir)

			if dir != "" && !dirExists(dir) {
				colWarn.Println("Directory does not exist.")
				continue
			}
			if err := setConfigValue(cfg, "AGPATCH_PATCHES_DIR", dir); err != nil {
				colError.Printf("Error: %v\n", err)
			} else {
				colSuccess.Println("Patches dir updated successfully.")
			}

		default:
			colWarn.Println("Invalid choice.")
		}
	}

	return nil
}
