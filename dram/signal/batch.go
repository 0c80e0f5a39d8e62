package signal

// A Batch accumulates the per-bank commands that one tile wants to issue in
// one cycle. A batch can only commit when all of its commands are of the
// same kind as the first one; Push tracks violations in the mixed flag so
// the caller can decide whether to discard the batch or strip the data
// commands and keep the prerequisites.
type Batch struct {
	Cmds  []Command
	mixed bool
}

// Push appends a command, flagging the batch as mixed if the kind disagrees
// with the leader.
func (b *Batch) Push(cmd Command) {
	if len(b.Cmds) > 0 && b.Cmds[0].Kind != cmd.Kind {
		b.mixed = true
	}

	b.Cmds = append(b.Cmds, cmd)
}

// Leader returns the kind of the first command. Empty batches lead with
// KindInvalid.
func (b *Batch) Leader() CommandKind {
	if len(b.Cmds) == 0 {
		return KindInvalid
	}

	return b.Cmds[0].Kind
}

// Mixed reports whether commands of more than one kind were pushed.
func (b *Batch) Mixed() bool {
	return b.mixed
}

// Empty reports whether the batch holds no commands.
func (b *Batch) Empty() bool {
	return len(b.Cmds) == 0
}

// Len returns the number of commands in the batch.
func (b *Batch) Len() int {
	return len(b.Cmds)
}

// Clear discards all commands. The mixed flag is kept so callers can still
// tell why the batch was dropped.
func (b *Batch) Clear() {
	b.Cmds = nil
}

// DropDataCommands removes the read commands from a mixed batch, keeping
// the activates and precharges that still have to be placed.
func (b *Batch) DropDataCommands() {
	kept := b.Cmds[:0]
	for _, cmd := range b.Cmds {
		if cmd.Kind == KindPIMRead || cmd.Kind == KindPIMReadPrecharge {
			continue
		}

		kept = append(kept, cmd)
	}

	b.Cmds = kept
}
