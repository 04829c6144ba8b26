package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/Cyvadra/signal-desk/internal/chat"
	"github.com/Cyvadra/signal-desk/internal/chatview"
	"github.com/Cyvadra/signal-desk/internal/client"
	"github.com/Cyvadra/signal-desk/internal/logger"
	"github.com/Cyvadra/signal-desk/internal/models"
	"github.com/spf13/cobra"
)

const chatHelp = `Commands:
  /new              start a new conversation
  /list             list conversations
  /open <id>        open a conversation
  /accounts         list accounts
  /account <id>     select the account used for new messages
  /create <n>       create proposed signal config n
  /preview <n>      preview proposed signal config n
  /help             show this help
  /quit             exit
Anything else is sent to the assistant.`

func newChatCmd(opts *options) *cobra.Command {
	var apiURL string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the signal assistant",
		RunE: func(cmd *cobra.Command, args []string) error {
			if apiURL == "" {
				apiURL = opts.cfg.Client.BaseURL
			}
			api := client.New(apiURL).SetTimeout(opts.cfg.Client.Timeout)
			repl := newREPL(api, cmd.InOrStdin(), cmd.OutOrStdout())
			return repl.Run(cmd.Context())
		},
	}

	cmd.Flags().StringVar(&apiURL, "api", "", "Backend API base URL (defaults to client.base_url)")
	return cmd
}

// repl is a line-oriented chat front end over a chat session
type repl struct {
	api     *client.Client
	session *chat.Session
	in      io.Reader
	out     io.Writer

	lastStatus string
	// notified is set when the session reported an error itself
	notified bool
}

func newREPL(api *client.Client, in io.Reader, out io.Writer) *repl {
	r := &repl{api: api, in: in, out: out}

	r.session = chat.NewSession(api, chat.NotifierFunc(func(message string) {
		r.notified = true
		r.println(chatview.Error(message))
	}))
	r.session.SetCreator(api)
	r.session.SetPreviewer(r)
	r.session.SetLogger(logger.Component("chat"))
	r.session.SetUpdateHandler(r.onUpdate)
	return r
}

// PreviewSignal prints a proposed config
func (r *repl) PreviewSignal(cfg models.SignalConfig) {
	r.println(chatview.Preview(cfg))
}

func (r *repl) onUpdate(state chat.State) {
	if !state.IsStreaming() {
		r.lastStatus = ""
		return
	}
	msg, ok := state.Message(state.StreamingID)
	if !ok || msg.StatusText == "" || msg.StatusText == r.lastStatus {
		return
	}
	r.lastStatus = msg.StatusText
	r.println(chatview.Status(msg.StatusText))
}

func (r *repl) println(s string) {
	if s != "" {
		fmt.Fprintln(r.out, s)
	}
}

// Run reads commands until EOF or /quit
func (r *repl) Run(ctx context.Context) error {
	defer r.session.Close()

	if err := r.session.Open(ctx); err != nil {
		return err
	}
	state := r.session.State()
	r.println(chatview.Accounts(state.Accounts, state.AccountID))
	r.println(chatview.Conversations(state.Conversations, state.ConversationID))
	r.println(chatview.Status("Type /help for commands"))

	scanner := bufio.NewScanner(r.in)
	for {
		fmt.Fprint(r.out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(r.out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		r.notified = false
		quit, err := r.handle(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			if !r.notified {
				r.println(chatview.Error(err.Error()))
			}
		}
		if quit {
			return nil
		}
	}
}

func (r *repl) handle(ctx context.Context, line string) (bool, error) {
	if !strings.HasPrefix(line, "/") {
		return false, r.send(ctx, line)
	}

	cmd, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch cmd {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		r.println(chatHelp)
	case "/new":
		r.session.NewConversation()
		r.println(chatview.Status("New conversation"))
	case "/list":
		state := r.session.State()
		r.println(chatview.Conversations(state.Conversations, state.ConversationID))
	case "/open":
		id, err := strconv.ParseInt(arg, 10, 64)
		if err != nil {
			return false, fmt.Errorf("invalid conversation id %q", arg)
		}
		if err := r.session.SelectConversation(ctx, id); err != nil {
			return false, err
		}
		state := r.session.State()
		r.println(chatview.Transcript(state))
		r.println(chatview.Cards(r.session.Cards()))
	case "/accounts":
		state := r.session.State()
		r.println(chatview.Accounts(state.Accounts, state.AccountID))
	case "/account":
		id, err := strconv.ParseUint(arg, 10, 64)
		if err != nil || id == 0 {
			return false, fmt.Errorf("invalid account id %q", arg)
		}
		r.session.SelectAccount(uint(id))
		state := r.session.State()
		r.println(chatview.Accounts(state.Accounts, state.AccountID))
	case "/create":
		index, err := cardIndex(arg)
		if err != nil {
			return false, err
		}
		ok, err := r.session.CreateConfig(ctx, index)
		if err != nil {
			return false, err
		}
		if ok {
			r.println(chatview.Status(fmt.Sprintf("Created config %d", index+1)))
		}
		r.println(chatview.Cards(r.session.Cards()))
	case "/preview":
		index, err := cardIndex(arg)
		if err != nil {
			return false, err
		}
		return false, r.session.PreviewConfig(index)
	default:
		return false, fmt.Errorf("unknown command %s, type /help", cmd)
	}
	return false, nil
}

func (r *repl) send(ctx context.Context, text string) error {
	if r.session.State().AccountID == 0 {
		return errors.New("no account selected, use /account <id>")
	}
	if err := r.session.SendMessage(ctx, text); err != nil {
		return err
	}

	state := r.session.State()
	if n := len(state.Messages); n > 0 {
		r.println(chatview.Message(state.Messages[n-1]))
	}
	r.println(chatview.Cards(r.session.Cards()))
	return nil
}

// cardIndex converts a 1-based card number to an index
func cardIndex(arg string) (int, error) {
	n, err := strconv.Atoi(arg)
	if err != nil || n < 1 {
		return 0, fmt.Errorf("invalid config number %q", arg)
	}
	return n - 1, nil
}
