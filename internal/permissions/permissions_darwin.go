//go:build darwin

package permissions

/*
#cgo LDFLAGS: -framework AVFoundation
#import <AVFoundation/AVFoundation.h>

int checkMicrophonePermission() {
    AVAuthorizationStatus status = [AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
    return (int)status;
}

void requestMicrophonePermission() {
    [AVCaptureDevice requestAccessForMediaType:AVMediaTypeAudio completionHandler:^(BOOL granted) {}];
}
*/
import "C"

// MicrophoneStatus returns the current microphone permission status
func MicrophoneStatus() Status {
	return Status(C.checkMicrophonePermission())
}

// Microphone returns nil when the process may record audio
func Microphone() error {
	return check(MicrophoneStatus())
}

// RequestMicrophone triggers the system permission dialog and returns at once
func RequestMicrophone() {
	C.requestMicrophonePermission()
}
