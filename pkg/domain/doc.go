/*
Package domain contains the core domain models of the pulse session control core.

It defines the vocabulary shared by every other package: the editable session
parameters, the run states of a stimulation session, the intents a host can
send, the immutable UI snapshot produced after every transition and the
one-shot events that accompany it. This package is kept pure and free of
I/O, following Hexagonal Architecture principles.

# Key Entities

  - FieldType: One of the three editable parameters (Frequency, Intensity, Duration).
  - Params: The committed frequency, intensity and duration of a session.
  - RunState: Idle, Running, Paused or SoftReduced.
  - Intent: A discrete user action (digit entry, start/stop, soft reduction).
  - UiState: The immutable snapshot published after each intent.
  - Event: A one-shot notification (toast or error) that is never persisted.
*/
package domain
