package ascii

// GetASCIIArt returns the ASCII art logo for qatrun
func GetASCIIArt() string {
	return `
             _
  __ _  __ _| |_ _ __ _   _ _ __
 / _' |/ _' | __| '__| | | | '_ \
| (_| | (_| | |_| |  | |_| | | | |
 \__, |\__,_|\__|_|   \__,_|_| |_|
    |_|
`
}
