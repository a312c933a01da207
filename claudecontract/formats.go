package claudecontract

// FormatStreamJSON is the --output-format value for newline-delimited JSON
// streaming. It is the only format the bridge can decode.
const FormatStreamJSON = "stream-json"
