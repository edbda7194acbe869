package engine

import (
	"log"
	"strings"
)

// Commands are deliberately small: the room only understands the handful of
// verbs every room is expected to answer. The full command grammar lives in
// the mediator-facing engine, outside this service.

type commandHandler struct {
	help   string
	hidden bool
	run    func(r *Room, u *User, rest string)
}

var commandTable map[string]commandHandler

func init() {
	commandTable = map[string]commandHandler{
		"look":      {help: "Look at the room, or **look at** an item.", run: cmdLook},
		"go":        {help: "Exit the room using the specified door.", run: cmdGo},
		"examine":   {help: "Examine an item in the room or your pockets.", run: cmdExamine},
		"inventory": {help: "List what you are carrying.", run: cmdInventory},
	}
}

// visibleCommands returns the /verb -> help map advertised in location
// events.
func visibleCommands() map[string]string {
	cmds := make(map[string]string, len(commandTable))
	for verb, h := range commandTable {
		if !h.hidden {
			cmds["/"+verb] = h.help
		}
	}
	return cmds
}

// Command runs one slash command for a player. Commands from users not
// present in the room are dropped; unknown verbs earn a self-only apology.
func (r *Room) Command(userID, input string) {
	u := r.userByID(userID)
	if u == nil {
		log.Printf("ignoring command from user %s not present in room %s", userID, r.id)
		return
	}

	verb, rest, _ := strings.Cut(strings.TrimSpace(input), " ")
	h, ok := commandTable[strings.ToLower(verb)]
	if !ok {
		r.events.PlayerEvent(userID, "I'm sorry, but I'm not sure how to "+input, "")
		return
	}
	h.run(r, u, strings.TrimSpace(rest))
}

func cmdLook(r *Room, u *User, rest string) {
	if rest == "" || strings.EqualFold(rest, "at the room") {
		r.sendLocation(u.ID)
		return
	}
	// "look at <item>" reads as examine.
	r.Command(u.ID, "examine "+strings.TrimPrefix(rest, "at "))
}

func cmdGo(r *Room, u *User, rest string) {
	dir, ok := ParseDirection(rest)
	if !ok {
		r.events.PlayerEvent(u.ID, "I'm sorry, but I'm not sure how I'm supposed to go "+rest, "")
		return
	}

	r.mu.RLock()
	exit, wired := r.exits[dir]
	r.mu.RUnlock()
	if !wired {
		r.events.PlayerEvent(u.ID, "You don't appear able to go "+dir.Long()+".", "")
		return
	}

	// The mediator moves the player; the room only signals the transition.
	r.events.ExitEvent(u.ID, "You head "+dir.Long()+".", string(exit.Direction))
}

func cmdExamine(r *Room, u *User, rest string) {
	if rest == "" {
		r.events.PlayerEvent(u.ID, "Examine what?", "")
		return
	}
	for _, it := range r.items {
		if strings.EqualFold(it.Name, rest) {
			r.events.PlayerEvent(u.ID, it.Description, "")
			return
		}
	}
	for _, carried := range u.Inventory {
		if strings.EqualFold(carried, rest) {
			r.events.PlayerEvent(u.ID, "You see nothing special about the "+carried+".", "")
			return
		}
	}
	r.events.PlayerEvent(u.ID, "There is no "+rest+" here to examine.", "")
}

func cmdInventory(r *Room, u *User, rest string) {
	if len(u.Inventory) == 0 {
		r.events.PlayerEvent(u.ID, "You have nothing in your pockets.", "")
		return
	}
	r.events.PlayerEvent(u.ID, "You are carrying "+strings.Join(u.Inventory, ", ")+".", "")
}
