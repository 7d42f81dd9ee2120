package cli

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// PromptForImagePath asks for an image path on stdin. An empty answer returns "".
func PromptForImagePath() string {
	return promptForImagePath(os.Stdin, os.Stdout)
}

func promptForImagePath(in io.Reader, out io.Writer) string {
	fmt.Fprint(out, "Image to enhance: ")

	reader := bufio.NewReader(in)
	input, err := reader.ReadString('\n')
	if err != nil && input == "" {
		return ""
	}

	return strings.Trim(strings.TrimSpace(input), `"'`)
}
