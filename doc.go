/*
Package flowtrace records the call flow of an application as a tree of frames,
and persists one JSON document per completed top-level invocation.

Instrumented functions start a frame using the *TracerBuilder, or are wrapped
once using Wrap, Wrap0 or Wrap2. Upon starting a frame, the caller gives it the
context it is operating in. If that context already carries an active trace,
the new frame is appended to it, one level deeper than its parent. If not, a
new trace is started and the frame becomes its root. Nothing but the context
is threaded through the call chain; there are no explicit trace parameters.

Consider this example call tree:

	|A (d=0)                               |
	 -----> |B (d=1)          | |D (d=1) |
	         ----> |C (d=2) |

Frame A is the root, as it was started from an idle context. Inside of A, B
starts at depth 1, and B calls C at depth 2. After B ends, D starts at depth 1,
as another child of A. The trace holds the frames in the order they were
entered, A, B, C, D, which is a pre-order walk of the tree. Each frame stores
its depth, so the tree can be rebuilt from the document alone.

When A ends, the trace is finalized and handed to the Persister. The default
Persister writes

	logs/A__2024_05_01-14_03_59_PM_042_SUCCESSFUL.json

where the outcome is ERROR if any frame in the trace failed.

Because a context.Context is immutable, each goroutine started with a context
gets a snapshot of the carrier, that is, of the active trace and the depth.
Two top-level calls running concurrently hence never see each other's frames,
and a child frame can never change what its parent or its siblings observe.
Goroutines forked within one trace keep appending to that trace.

Arguments, keyword arguments (Kwargs) and return values are truncated with
package truncate before they are stored, so the documents stay small no
matter what the instrumented code passes around.

Errors returned by a traced function are recorded on its frame and returned
to the caller unchanged. Panics are recorded, the trace is finalized, and the
panic continues. Tracing hence never changes the control flow of the traced
code.

Logging goes through go-logr. The Logger is resolved from the context, falling
back to the global Logger (logr.Discard by default). Within a frame, the
context carries a Logger that also records each log line into the frame's
log_messages, so the persisted document shows what was logged where. For
convenience, a builder-pattern constructor for a zap-backed Logger is provided
through NewZap() and the zaplog sub-directory.

Frames can also be mirrored into OpenTelemetry spans by registering a
TracerProvider, e.g. one built with Provider(). This stays within the process;
flowtrace does not propagate anything across process boundaries.
*/
package flowtrace
