package version

// Current defines the application version.
// It defaults to "dev" but is overwritten at build time using -ldflags.
var Current = "dev"

const AppName = "CloudQuote"

// UserAgent identifies outbound pricing API calls in upstream access logs.
func UserAgent() string {
	return AppName + "/" + Current
}
