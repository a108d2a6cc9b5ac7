// Package runtime is the entry point of the bridge: it boots an
// interpreter, loads the handle cache and hands out sessions.
//
// # Quick Start
//
//	ctx := context.Background()
//	rt, err := runtime.New(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer rt.Close(ctx)
//
//	err = rt.Exec(ctx, func(s *runtime.Session) error {
//	    a, err := s.Invoke("arange", []any{6}, map[string]any{"dtype": reflect.TypeFor[int32]()})
//	    if err != nil {
//	        return err
//	    }
//	    defer s.Free(a)
//
//	    n, err := s.Invoke("linalg.norm", []any{a}, nil)
//	    fmt.Println(n) // 7.416198487095663
//	    return err
//	})
//
// # Sessions
//
// Exec acquires the interpreter lock once and runs the function with a
// Session. Everything a Session does assumes the lock is held, so a Session
// must not escape its Exec call and Exec must not be nested.
//
// # Calls
//
// Function paths are resolved from the root module; a leading root module
// name is optional ("linalg.norm" and "numeric.linalg.norm" are the same).
// Only these keyword arguments are forwarded, the rest are dropped:
//
//	out  where  axes  axis  keepdims  casting  order  dtype  subok
//
// Array results are returned as *ndarray.Array by reference transfer; the
// caller frees them with Session.Free or Array.Free. Everything else is
// converted at its natural Go width:
//
//	Foreign          Go
//	──────────────────────────────
//	None             nil
//	bool             bool
//	int              int64
//	float            float64
//	str              string
//	array scalar     int8 … float64, bool, host.Char
//	list, tuple      []any
//	ndarray          *ndarray.Array
//
// # Errors
//
// Every failure is an *errors.Error. Errors raised inside the interpreter
// carry "<type>: <message>" and a trace that starts with the foreign frames
// and continues with the Go frames of the caller.
//
// # Resource Management
//
// Close frees every array wrapper still alive and logs each one as a leak,
// then shuts the interpreter down. Wrappers that are garbage collected
// without Free release their reference on their own.
package runtime
