package util

import "github.com/common-nighthawk/go-figure"

// DefaultBannerFont is the figlet font used for the CLI banner.
const DefaultBannerFont = "standard"

// Banner renders text as ASCII art. An empty font uses DefaultBannerFont.
func Banner(text, font string) string {
	if font == "" {
		font = DefaultBannerFont
	}
	return figure.NewFigure(text, font, true).String()
}
