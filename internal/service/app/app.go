package app

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"dm_chat/internal/model"
	"dm_chat/internal/utils/log"

	"github.com/gdamore/tcell/v2"
	"github.com/gorilla/websocket"
	"github.com/rivo/tview"
	"go.uber.org/zap"
)

type (
	App struct {
		app     *tview.Application
		chatbox *tview.TextView
		input   *tview.InputField

		serverAddr string
		user       string
		toName     string

		token   string
		history []model.Message

		conn *websocket.Conn
	}
)

func NewApp(serverAddr string) *App {
	return &App{
		app:        tview.NewApplication(),
		serverAddr: serverAddr,
	}
}

func (c *App) Run(name string) {
	c.user = name

	token, err := c.fetchToken(name)
	if err != nil {
		log.Fatal("get access token failed", zap.Error(err))
	}
	c.token = token

	var toName string
	fmt.Print("Enter recipient's name: ")
	_, err = fmt.Scan(&toName) // reads until whitespace
	if err != nil {
		fmt.Println("error:", err)
		return
	}
	c.toName = toName

	// opening history marks everything addressed to us as read
	c.history, err = c.fetchHistory(toName)
	if err != nil {
		log.Fatal("fetch chat history failed", zap.Error(err))
	}

	c.conn, err = c.dial()
	if err != nil {
		log.Fatal("connect to server failed", zap.Error(err))
	}

	go c.listen()
	c.renderUI()
}

func (c *App) Stop() {
	if c.conn != nil {
		c.conn.Close()
	}
}

// blocking function
func (c *App) renderUI() {
	c.chatbox = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true)
	c.chatbox.SetBorder(true).SetTitle(fmt.Sprintf(" Chat with %s ", c.toName))

	c.input = tview.NewInputField().
		SetLabel("Message: ").
		SetFieldWidth(0)
	c.input.SetBorder(true).SetTitle(" New Message ")

	for i := range c.history {
		c.printMessage(&c.history[i])
	}

	c.input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter {
			text := c.input.GetText()
			if text == "" {
				return
			}

			go func(msg string) {
				if err := c.SendMessage(msg); err != nil {
					c.app.Suspend(func() {
						log.Error("send message failed", zap.Error(err))
					})
				}
			}(text)
		}
	})

	layout := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(c.chatbox, 0, 1, false).
		AddItem(c.input, 3, 0, true)

	if err := c.app.SetRoot(layout, true).SetFocus(c.input).Run(); err != nil {
		log.Fatal("cannot init app", zap.Error(err))
	}
}

func (c *App) SendMessage(msg string) error {
	err := c.conn.WriteJSON(&model.Message{
		Receiver: c.toName,
		Body:     msg,
	})
	if err != nil {
		return err
	}

	c.app.QueueUpdateDraw(func() {
		c.input.SetText("")
	})
	return nil
}

func (c *App) listen() {
	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			log.Debug("websocket closed", zap.Error(err))
			c.conn.Close()
			break
		}

		var ev model.Event
		if err := json.Unmarshal(data, &ev); err != nil {
			log.Error("unmarshal event failed", zap.Error(err))
			continue
		}

		switch ev.Type {
		case model.EventMessage:
			var message model.Message
			if err := json.Unmarshal(ev.Data, &message); err != nil {
				log.Error("unmarshal message failed", zap.Error(err))
				continue
			}
			c.app.QueueUpdateDraw(func() {
				c.printMessage(&message)
				c.chatbox.ScrollToEnd()
			})

		case model.EventReceipt:
			var receipt model.Receipt
			if err := json.Unmarshal(ev.Data, &receipt); err != nil {
				log.Error("unmarshal receipt failed", zap.Error(err))
				continue
			}
			c.app.QueueUpdateDraw(func() {
				fmt.Fprintf(c.chatbox, "[gray]  ✓ %s[-]\n", receipt.Status)
				c.chatbox.ScrollToEnd()
			})

		case model.EventError:
			var payload model.ErrorPayload
			if err := json.Unmarshal(ev.Data, &payload); err != nil {
				continue
			}
			c.app.QueueUpdateDraw(func() {
				fmt.Fprintf(c.chatbox, "[red]error: %s[-]\n", payload.Error)
				c.chatbox.ScrollToEnd()
			})
		}
	}
}

func (c *App) printMessage(message *model.Message) {
	if message.Sender == c.user {
		fmt.Fprintf(c.chatbox, "[yellow]You:[-] %s\n", message.Body)
	} else {
		fmt.Fprintf(c.chatbox, "[green]%s:[-] %s\n", message.Sender, message.Body)
	}
}

func (c *App) fetchToken(name string) (string, error) {
	resp, err := http.Get(fmt.Sprintf("http://%s/get_token/%s", c.serverAddr, url.PathEscape(name)))
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("get_token returned %s", resp.Status)
	}

	var body struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", err
	}
	return body.AccessToken, nil
}

func (c *App) fetchHistory(toName string) ([]model.Message, error) {
	req, err := http.NewRequest(http.MethodGet,
		fmt.Sprintf("http://%s/chat_history/%s", c.serverAddr, url.PathEscape(toName)), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("chat_history returned %s", resp.Status)
	}

	var messages []model.Message
	if err := json.NewDecoder(resp.Body).Decode(&messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *App) dial() (*websocket.Conn, error) {
	u := url.URL{Scheme: "ws", Host: c.serverAddr, Path: "/ws/" + c.token}
	conn, _, err := websocket.DefaultDialer.Dial(u.String(), nil)
	return conn, err
}
