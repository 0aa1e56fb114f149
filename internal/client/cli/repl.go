package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	remoteEnabled() bool
	SignUp(ctx context.Context, args []string) error
	SignIn(ctx context.Context, args []string) error
	SignOut(ctx context.Context, args []string) error
	SetPIN(ctx context.Context, args []string) error
	Add(ctx context.Context, args []string) error
	Edit(ctx context.Context, args []string) error
	List(ctx context.Context, args []string) error
	Show(ctx context.Context, args []string) error
	Delete(ctx context.Context, args []string) error
	Range(ctx context.Context, args []string) error
	Stats(ctx context.Context, args []string) error
	Prefs(ctx context.Context, args []string) error
	Export(ctx context.Context, args []string) error
	Import(ctx context.Context, args []string) error
	Backup(ctx context.Context, args []string) error
	Restore(ctx context.Context, args []string) error
	Storage(ctx context.Context, args []string) error
	Migrate(ctx context.Context, args []string) error
	Clear(ctx context.Context, args []string) error
}

const helpText = `Available commands:
  add                      record an episode
  edit <id>                change an episode
  delete <id>              remove an episode
  (l)ist [n]               newest episodes first
  show <id>                one episode in full
  range <from> <to>        episodes starting between two dates
  stats [days]             summary of the last 30 (or n) days
  prefs [key=value ...]    show or change preferences
  export <file>            write a backup bundle
  import <file>            read a backup bundle
  storage                  local storage usage
  pin                      set the unlock PIN
  clear                    erase the local journal
  exit | quit              leave the program`

const remoteHelpText = `Account commands:
  signup | signin | signout
  migrate                  copy this device's journal into your account
  backup [name]            store a backup on the server
  restore <name>           import a backup from the server`

// runREPL starts a simple read–eval–print loop.
//
// It reads a line from reader, parses the first token as the command and
// passes the rest as arguments. Errors returned by handlers are printed and
// the loop goes on. The loop exits on EOF or when the user types "exit" or
// "quit".
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("mlog %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		var cmdErr error
		switch cmd {
		case "help":
			printlnFn(helpText)
			if a.remoteEnabled() {
				printlnFn(remoteHelpText)
			}
		case "signup":
			cmdErr = a.SignUp(ctx, args)
		case "signin", "login":
			cmdErr = a.SignIn(ctx, args)
		case "signout", "logout":
			cmdErr = a.SignOut(ctx, args)
		case "pin":
			cmdErr = a.SetPIN(ctx, args)
		case "add":
			cmdErr = a.Add(ctx, args)
		case "edit":
			cmdErr = a.Edit(ctx, args)
		case "l", "list":
			cmdErr = a.List(ctx, args)
		case "show":
			cmdErr = a.Show(ctx, args)
		case "delete", "rm":
			cmdErr = a.Delete(ctx, args)
		case "range":
			cmdErr = a.Range(ctx, args)
		case "stats":
			cmdErr = a.Stats(ctx, args)
		case "prefs":
			cmdErr = a.Prefs(ctx, args)
		case "export":
			cmdErr = a.Export(ctx, args)
		case "import":
			cmdErr = a.Import(ctx, args)
		case "backup":
			cmdErr = a.Backup(ctx, args)
		case "restore":
			cmdErr = a.Restore(ctx, args)
		case "storage":
			cmdErr = a.Storage(ctx, args)
		case "migrate":
			cmdErr = a.Migrate(ctx, args)
		case "clear":
			cmdErr = a.Clear(ctx, args)
		case "exit", "quit":
			printlnFn("Bye!")
			return
		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", cmdErr)
		}
		if err != nil {
			return
		}
	}
}

// errUsage reports a command called with the wrong arguments.
type errUsage string

func (e errUsage) Error() string { return "usage: " + string(e) }
