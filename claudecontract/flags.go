package claudecontract

// CLI flag names used by the bridge. These are the exact long-form names
// accepted by the claude binary.
const (
	FlagPrint          = "--print"           // -p, non-interactive mode
	FlagContinue       = "--continue"        // -c, continue the most recent conversation in cwd
	FlagPermissionMode = "--permission-mode" // permission handling mode
	FlagOutputFormat   = "--output-format"   // text, json, stream-json
	FlagVerbose        = "--verbose"         // required by stream-json in print mode
	FlagVersion        = "--version"         // -v, print version and exit
)

// PrintModeArgs returns the fixed argument list for one non-interactive,
// permission-bypassing, stream-json invocation. When continueConversation is
// true the CLI resumes the most recent conversation of its working directory;
// otherwise it starts with a fresh context.
func PrintModeArgs(continueConversation bool) []string {
	args := make([]string, 0, 7)
	args = append(args, FlagPrint)
	if continueConversation {
		args = append(args, FlagContinue)
	}
	args = append(args,
		FlagPermissionMode, PermissionBypassPermissions.String(),
		FlagOutputFormat, FormatStreamJSON,
		FlagVerbose,
	)
	return args
}
