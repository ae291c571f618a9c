//go:build linux

package clipboard

func platformCommands() []Command {
	return []Command{
		{Name: "wl-paste", Args: []string{"--no-newline"}},
		{Name: "xclip", Args: []string{"-selection", "clipboard", "-o"}},
		{Name: "xsel", Args: []string{"--clipboard", "--output"}},
	}
}
