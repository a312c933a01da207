// Package streamjson decodes the Claude CLI's --output-format stream-json
// output into typed records.
//
// The CLI writes one JSON object per line, but a pipe delivers bytes in
// arbitrary chunks. A Decoder buffers the incomplete tail of the last line
// between chunks and yields only whole lines:
//
//	dec := streamjson.NewDecoder()
//	for rec, err := range dec.Stream(stdout) {
//	    if err != nil {
//	        return err
//	    }
//	    switch rec.Kind {
//	    case streamjson.KindInit:
//	        fmt.Println("session", rec.Init.SessionID)
//	    case streamjson.KindAssistant:
//	        fmt.Print(rec.Assistant.Text())
//	    case streamjson.KindResult:
//	        fmt.Println(rec.Result.Result)
//	    }
//	}
//
// Callers that receive chunks from elsewhere use Feed and Flush directly.
package streamjson
