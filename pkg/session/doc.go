// Package session implements the OMA DM client session engine.
//
// A Session owns one management session with one server: both directions
// of authentication, the packet exchange and the dispatch of server
// commands to management object providers and to the user interaction
// handler. The engine performs no I/O; the caller moves packets:
//
//	s, err := session.New(session.Config{Encoding: codec.EncodingXML, Accounts: store, DeviceInfo: info})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer s.Close()
//
//	s.AddProvider(tree)
//	s.Start(ctx, "funambol", session.InitiatorClient)
//	for {
//	    pkt, err := s.NextPacket()
//	    if err != nil {
//	        break
//	    }
//	    reply, err := send(pkt) // transport, outside the engine
//	    pkt.Release()
//	    if err != nil {
//	        break
//	    }
//	    if err := s.ProcessReply(ctx, reply); err != nil {
//	        break // ErrSessionEnd on normal termination
//	    }
//	}
//
// A Session is not safe for concurrent use.
//
// Spec References:
//   - OMA-TS-DM_Protocol-V1_2: Section 8 (packages), Section 9 (authentication)
package session
