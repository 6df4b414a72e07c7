package carrier

import (
	"github.com/twilio/twilio-go/twiml"
)

const (
	holdMusicURL      = "http://com.twilio.music.classical.s3.amazonaws.com/BusyStrings.mp3"
	conferenceWaitURL = "http://twimlets.com/holdmusic?Bucket=com.twilio.music.classical"
	sayVoice          = "alice"
)

// HoldMusic builds the document that parks the caller on hold music while
// the agent leg is being set up.
func HoldMusic() (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoicePlay{Url: holdMusicURL},
	})
}

// Dial builds the document for a cold transfer: the live leg rings the
// destination directly and the carrier bridges the two parties.
func Dial(destinationNumber string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceDial{Number: destinationNumber},
	})
}

// AgentWhisper builds the document for the agent leg of a warm transfer:
// the whisper message is spoken privately, then a single digit is gathered
// and posted to gatherAction to confirm the bridge.
func AgentWhisper(whisperMessage, gatherAction string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: whisperMessage, Voice: sayVoice},
		&twiml.VoiceSay{Message: "Press any key to connect the caller.", Voice: sayVoice},
		&twiml.VoiceGather{
			NumDigits: "1",
			Action:    gatherAction,
			InnerElements: []twiml.Element{
				&twiml.VoiceSay{Message: "Press any key to connect.", Voice: sayVoice},
			},
		},
	})
}

// AgentConference announces the bridge to the agent and drops them into the
// room. The agent entering starts the conference; the agent leaving must not
// end it, because the caller may still be on the way in.
func AgentConference(conferenceName string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceSay{Message: "Connecting you to the caller now.", Voice: sayVoice},
		&twiml.VoiceDial{
			InnerElements: []twiml.Element{
				&twiml.VoiceConference{
					Name:                   conferenceName,
					StartConferenceOnEnter: "true",
					EndConferenceOnExit:    "false",
					WaitUrl:                conferenceWaitURL,
				},
			},
		},
	})
}

// CallerConference moves the caller's leg into an existing room. The caller
// does not start the conference, and the caller hanging up ends it for
// everyone: once the customer is gone the conversation is over.
func CallerConference(conferenceName string) (string, error) {
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceDial{
			InnerElements: []twiml.Element{
				&twiml.VoiceConference{
					Name:                   conferenceName,
					StartConferenceOnEnter: "false",
					EndConferenceOnExit:    "true",
					WaitUrl:                conferenceWaitURL,
				},
			},
		},
	})
}

// StreamConnect bridges a carrier leg to the voice-AI media stream at
// joinURL. eventsURL, when set, is passed to the stream as a parameter so
// stream lifecycle events reach our webhook.
func StreamConnect(joinURL, eventsURL string) (string, error) {
	stream := &twiml.VoiceStream{Url: joinURL}
	if eventsURL != "" {
		stream.InnerElements = []twiml.Element{
			&twiml.VoiceParameter{Name: "streamEventsUrl", Value: eventsURL},
		}
	}
	return twiml.Voice([]twiml.Element{
		&twiml.VoiceConnect{
			InnerElements: []twiml.Element{stream},
		},
	})
}
