package lark

import (
	"fmt"
	"time"
)

// Card is an interactive card payload in the platform's JSON card schema.
type Card map[string]any

// AtUser renders an @-mention markup token for card markdown.
func AtUser(userID string) string {
	return fmt.Sprintf("<at id=%s></at>", userID)
}

func cardConfig() map[string]any {
	return map[string]any{"wide_screen_mode": true}
}

func header(template, title string) map[string]any {
	return map[string]any{
		"template": template,
		"title":    map[string]any{"tag": "plain_text", "content": title},
	}
}

func mdDiv(content string) map[string]any {
	return map[string]any{
		"tag":  "div",
		"text": map[string]any{"tag": "lark_md", "content": content},
	}
}

func hr() map[string]any {
	return map[string]any{"tag": "hr"}
}

// Hello is the welcome card shown when the bot joins a group.
func Hello(botName string) Card {
	return Card{
		"config": cardConfig(),
		"header": header("green", "Welcome to the "+botName+" Robot"),
		"elements": []any{
			mdDiv("You can learn more details about the robot through the `help` command"),
			hr(),
			mdDiv("Mention me with a command in this group, or chat with me directly"),
		},
	}
}

// Markdown wraps plain markdown content in a card body.
func Markdown(content string) Card {
	return Card{
		"config":   cardConfig(),
		"elements": []any{mdDiv(content)},
	}
}

// UID shows a user's ids. searched distinguishes a mention lookup from self.
func UID(userID, openID string, searched bool) Card {
	title := "Details of your user ID"
	if searched {
		title = "Details of your search user ID"
	}
	return Card{
		"config": cardConfig(),
		"header": header("blue", title),
		"elements": []any{
			hr(),
			map[string]any{"tag": "markdown", "content": "🆔 **USER_ID**"},
			map[string]any{"tag": "markdown", "content": userID},
			hr(),
			map[string]any{"tag": "markdown", "content": "🆔 **OPEN_ID**"},
			map[string]any{"tag": "markdown", "content": openID},
		},
	}
}

// Answer renders streamed answer text. While the stream is still running,
// fresh adds a loading footer that the final refresh drops.
func Answer(content string, fresh bool) Card {
	elements := []any{mdDiv(content)}
	if fresh {
		elements = append(elements,
			hr(),
			mdDiv("<font color='green'>Loading...</font>"),
		)
	}
	return Card{
		"config":   cardConfig(),
		"elements": elements,
	}
}

// Groups renders a two-column table of the bot's group chats.
func Groups(chats []ChatSummary) Card {
	elements := []any{
		map[string]any{
			"tag": "column_set", "flex_mode": "none", "background_style": "indigo",
			"columns": []any{
				map[string]any{
					"tag": "column", "width": "weighted", "weight": 2, "vertical_align": "top",
					"elements": []any{map[string]any{"tag": "markdown", "content": "**🗳 NAME**"}},
				},
				map[string]any{
					"tag": "column", "width": "weighted", "weight": 3, "vertical_align": "top",
					"elements": []any{map[string]any{"tag": "markdown", "content": "**🆔 ID**"}},
				},
			},
		},
	}
	for _, chat := range chats {
		elements = append(elements, map[string]any{
			"tag": "column_set", "flex_mode": "none",
			"columns": []any{
				map[string]any{
					"tag": "column", "width": "weighted", "weight": 2, "vertical_align": "top",
					"elements": []any{map[string]any{"tag": "markdown", "content": chat.Name}},
				},
				map[string]any{
					"tag": "column", "width": "weighted", "weight": 3, "vertical_align": "top",
					"elements": []any{map[string]any{"tag": "markdown", "content": chat.ChatID}},
				},
			},
		})
	}
	return Card{
		"config":   cardConfig(),
		"header":   header("blue", "Groups"),
		"elements": elements,
	}
}

// serviceCatalog is the fixed menu of work-order categories.
var serviceCatalog = []service{
	{
		Value:   "permission",
		Content: "Access Request",
		Orders: []serviceOption{
			{Content: "OTA", Value: "permission_ota"},
			{Content: "DIY", Value: "permission_diy"},
		},
	},
	{
		Value:   "bug",
		Content: "Bug Feedback",
		Orders: []serviceOption{
			{Content: "platform bug", Value: "bug_platform"},
			{Content: "integration bug", Value: "bug_integration"},
		},
	},
	{
		Value:   "other",
		Content: "Others",
		Orders: []serviceOption{
			{Content: "Other Work Order", Value: "other_work_order"},
		},
	},
}

type service struct {
	Value   string
	Content string
	Orders  []serviceOption
}

type serviceOption struct {
	Content string
	Value   string
}

func selectOption(content, value string) map[string]any {
	return map[string]any{
		"text":  map[string]any{"tag": "plain_text", "content": content},
		"value": value,
	}
}

// OrderMenu is the entry card with a single button opening the service select.
func OrderMenu() Card {
	return Card{
		"config": cardConfig(),
		"header": header("blue", "Work Order"),
		"elements": []any{
			map[string]any{
				"tag": "action",
				"actions": []any{
					map[string]any{
						"tag":   "button",
						"text":  map[string]any{"tag": "plain_text", "content": "Artificial Service"},
						"type":  "primary",
						"value": map[string]any{"action": "work_order"},
					},
				},
			},
		},
	}
}

// OrderServiceSelect lists the top-level service categories.
func OrderServiceSelect() Card {
	var options []any
	for _, svc := range serviceCatalog {
		options = append(options, selectOption(svc.Content, svc.Value))
	}
	return Card{
		"config": cardConfig(),
		"header": header("blue", "Choose Service"),
		"elements": []any{
			map[string]any{
				"tag": "action",
				"actions": []any{
					map[string]any{
						"tag":         "select_static",
						"placeholder": map[string]any{"tag": "plain_text", "content": "Choose Service"},
						"value":       map[string]any{"action": "work_order_type"},
						"options":     options,
					},
				},
			},
		},
	}
}

// OrderTypeList lists the concrete order types for a selected service, with a
// submit confirmation.
func OrderTypeList(serviceValue string) Card {
	placeholder := "Choose Service"
	var options []any
	for _, svc := range serviceCatalog {
		if svc.Value != serviceValue {
			continue
		}
		placeholder = fmt.Sprintf("Choose %s Type", svc.Content)
		for _, o := range svc.Orders {
			options = append(options, selectOption(o.Content, o.Value))
		}
	}
	return Card{
		"config": cardConfig(),
		"header": header("blue", "Choose Service"),
		"elements": []any{
			map[string]any{
				"tag": "action",
				"actions": []any{
					map[string]any{
						"tag":         "select_static",
						"placeholder": map[string]any{"tag": "plain_text", "content": placeholder},
						"value":       map[string]any{"action": "work_order_submit"},
						"options":     options,
						"confirm": map[string]any{
							"title": map[string]any{"tag": "plain_text", "content": "Confirm Service"},
							"text":  map[string]any{"tag": "plain_text", "content": "Continue to submit?"},
						},
					},
				},
			},
		},
	}
}

// OrderShow announces a freshly created order in its group chat.
func OrderShow(chatName, applicant, operator, description string, createdAt time.Time) Card {
	fields := []any{
		map[string]any{"is_short": false, "text": map[string]any{
			"tag": "lark_md", "content": "🕗︎ **Create      : **" + createdAt.Format("2006-01-02 15:04:05")}},
		map[string]any{"is_short": false, "text": map[string]any{
			"tag": "lark_md", "content": "🗣 **Applicant   : **" + AtUser(applicant)}},
		map[string]any{"is_short": false, "text": map[string]any{
			"tag": "lark_md", "content": "👨‍🔧 **Operator    : **" + AtUser(operator)}},
	}
	return Card{
		"config": cardConfig(),
		"header": header("turquoise", "🚨 "+chatName),
		"elements": []any{
			map[string]any{"tag": "div", "fields": fields},
			hr(),
			mdDiv("🔖 **Description : **" + description),
		},
	}
}

// Nudge pokes the operator of an overdue order.
func Nudge(operator string) Card {
	return Markdown(AtUser(operator) + " What's going on now?")
}
