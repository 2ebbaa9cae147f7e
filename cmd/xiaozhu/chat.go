// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Xiaozhu Contributors

package main

import (
	"bufio"
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/xiaozhu-dev/xiaozhu/internal/conversation"
	"github.com/xiaozhu-dev/xiaozhu/internal/event"
	"github.com/xiaozhu-dev/xiaozhu/internal/store"
	xzerr "github.com/xiaozhu-dev/xiaozhu/pkg/errors"
)

const chatHelp = `可用命令：
  /cancel   退出职业规划面试
  /history  查看天气查询历史
  /new      开始新会话
  /help     显示帮助
  /quit     退出`

func newChatCmd(c *cli) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat [message]",
		Short: "Chat with 小助",
		Long: "Without arguments, start an interactive session. With a message, send it once, " +
			"print the reply and exit.",
		Example: `  xiaozhu chat
  xiaozhu chat 北京天气怎么样
  xiaozhu chat --session work 职业规划`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runChat(cmd, args)
		},
	}
	cmd.Flags().StringP("session", "s", "", "session id to resume (default: new session)")
	cmd.Flags().Bool("plain", false, "disable styling and markdown rendering")
	return cmd
}

// chatSession is one CLI conversation bound to a stored session.
type chatSession struct {
	chat *conversation.Manager
	sess *store.Session
	r    *renderer
}

func (c *cli) runChat(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	return c.withApp(ctx, func(app *App) error {
		sessionID, _ := cmd.Flags().GetString("session")
		sess, err := app.Chat.Open(ctx, sessionID)
		if err != nil {
			return err
		}
		plain, _ := cmd.Flags().GetBool("plain")
		cs := &chatSession{chat: app.Chat, sess: sess, r: newRenderer(cmd.OutOrStdout(), plain)}

		if len(args) > 0 {
			return cs.send(ctx, strings.Join(args, " "), true)
		}
		return cs.repl(ctx, cmd)
	})
}

// send runs one turn and renders its events. In one-shot mode the turn's
// error is returned instead of printed.
func (cs *chatSession) send(ctx context.Context, message string, oneShot bool) error {
	turn, err := cs.chat.Send(ctx, cs.sess, message)
	if err != nil {
		return err
	}
	defer turn.Close()

	for e := range turn.Events() {
		if _, ok := e.(event.Error); ok && oneShot {
			continue
		}
		cs.r.Event(e)
	}
	if oneShot {
		return turn.Err()
	}
	return nil
}

func (cs *chatSession) repl(ctx context.Context, cmd *cobra.Command) error {
	out := cmd.OutOrStdout()
	banner := "小助 · 天气查询 / 职业规划 / 日常问答"
	if !cs.r.plain {
		banner = titleStyle.Render(banner)
	}
	_, _ = fmt.Fprintln(out, banner)
	cs.r.Info(fmt.Sprintf("会话 %s，输入 /help 查看命令", cs.sess.ID))

	prompt := "你> "
	if !cs.r.plain {
		prompt = promptStyle.Render(prompt)
	}

	scanner := bufio.NewScanner(cmd.InOrStdin())
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		_, _ = fmt.Fprint(out, prompt)
		if !scanner.Scan() {
			_, _ = fmt.Fprintln(out)
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		if strings.HasPrefix(line, "/") {
			quit, err := cs.command(ctx, line)
			if err != nil {
				cs.r.Error(err.Error())
			}
			if quit {
				return nil
			}
			continue
		}

		if err := cs.send(ctx, line, false); err != nil {
			cs.r.Error(err.Error())
		}
		if ctx.Err() != nil {
			return nil
		}
	}
}

// command handles a slash command and reports whether the REPL should exit.
func (cs *chatSession) command(ctx context.Context, line string) (bool, error) {
	switch strings.Fields(line)[0] {
	case "/quit", "/exit":
		return true, nil
	case "/help":
		cs.r.Info(chatHelp)
	case "/cancel":
		state, err := cs.chat.CancelCareer(ctx, cs.sess.ID)
		if err != nil {
			return false, err
		}
		cs.sess.Career = state
		cs.r.Info(conversation.CancelReply)
	case "/new":
		sess, err := cs.chat.Open(ctx, "")
		if err != nil {
			return false, err
		}
		cs.sess = sess
		cs.r.Info("新会话 " + sess.ID)
	case "/history":
		entries := cs.chat.Router().History().List()
		if len(entries) == 0 {
			cs.r.Info("暂无天气查询记录")
			return false, nil
		}
		writeHistory(cs.r.out, entries)
	default:
		return false, xzerr.New(xzerr.CodeCLIInputInvalid, "未知命令 "+line+"，输入 /help 查看命令")
	}
	return false, nil
}
