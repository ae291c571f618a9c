//go:build windows

package clipboard

func platformCommands() []Command {
	return []Command{
		{Name: "powershell.exe", Args: []string{"-NoProfile", "-Command", "Get-Clipboard -Raw"}, TrimNewline: true},
	}
}
