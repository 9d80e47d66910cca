package live

import (
	"context"
	"fmt"

	"github.com/peterkuimelis/barnacle/internal/card"
)

// Conn carries builder messages in both directions.
type Conn interface {
	Read(ctx context.Context) (ClientMessage, error)
	Write(ctx context.Context, msg *ServerMessage) error
}

// RecordFunc stores a finished card. A nil RecordFunc records nothing.
type RecordFunc func(ctx context.Context, c card.Card) error

// Serve runs builder sessions over conn until reading fails. Every "start"
// takes a fresh tables snapshot and replaces the open session. Bad moves
// are answered with an "error" message and the session stays open.
func Serve(ctx context.Context, conn Conn, tables func() card.Tables, record RecordFunc) error {
	var sess *Session
	for {
		msg, err := conn.Read(ctx)
		if err != nil {
			return err
		}

		var reply *ServerMessage
		switch {
		case msg.Type == MsgStart:
			next, err := Start(msg, tables())
			if err != nil {
				reply = ErrorMessage(err)
				break
			}
			sess = next
			reply = sess.View()
		case sess == nil:
			reply = ErrorMessage(fmt.Errorf("no card is in progress, send %q first", MsgStart))
		default:
			reply, err = sess.Handle(msg)
			if err != nil {
				reply = ErrorMessage(err)
				break
			}
			if c, ok := sess.Built(); ok && reply.Type == MsgBuilt && record != nil {
				if err := record(ctx, c); err != nil {
					reply.Warning = fmt.Sprintf("card not recorded: %v", err)
				}
			}
		}

		if err := conn.Write(ctx, reply); err != nil {
			return fmt.Errorf("write %s: %w", reply.Type, err)
		}
	}
}
